package cron

import (
	"context"
	"fmt"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
)

type IdempotencyPurgeJobParams struct {
	Logger *logger.Logger
	Purger idempotencyPurger
}

type idempotencyPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// NewIdempotencyPurgeJob builds the job that removes idempotency records
// past their replay TTL. Expired records no longer arbitrate retries, so
// keeping them only grows the table.
func NewIdempotencyPurgeJob(params IdempotencyPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	return &idempotencyPurgeJob{
		logg:   params.Logger,
		purger: params.Purger,
	}, nil
}

type idempotencyPurgeJob struct {
	logg   *logger.Logger
	purger idempotencyPurger
}

func (j *idempotencyPurgeJob) Name() string { return "idempotency-purge" }

func (j *idempotencyPurgeJob) Run(ctx context.Context) error {
	purged, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("idempotency purge: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_purged", purged)
	j.logg.Info(logCtx, "idempotency purge complete")
	return nil
}
