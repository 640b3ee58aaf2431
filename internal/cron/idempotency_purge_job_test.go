package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
)

type fakePurger struct {
	purged int64
	err    error
	called int
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	return f.purged, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestIdempotencyPurgeJob(t *testing.T) {
	purger := &fakePurger{purged: 17}
	job, err := NewIdempotencyPurgeJob(IdempotencyPurgeJobParams{
		Logger: testLogger(),
		Purger: purger,
	})
	if err != nil {
		t.Fatalf("NewIdempotencyPurgeJob: %v", err)
	}

	if job.Name() != "idempotency-purge" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.called != 1 {
		t.Fatalf("expected one purge call, got %d", purger.called)
	}
}

func TestIdempotencyPurgeJobPropagatesErrors(t *testing.T) {
	purger := &fakePurger{err: errors.New("boom")}
	job, err := NewIdempotencyPurgeJob(IdempotencyPurgeJobParams{
		Logger: testLogger(),
		Purger: purger,
	})
	if err != nil {
		t.Fatalf("NewIdempotencyPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
