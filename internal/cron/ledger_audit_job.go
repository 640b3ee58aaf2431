package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/metrics"
)

type LedgerAuditJobParams struct {
	Logger    *logger.Logger
	Merchants merchantBalanceReader
	Ledger    ledgerSummer
	Metrics   *metrics.PaymentMetrics
}

type merchantBalanceReader interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Balance(ctx context.Context, id uuid.UUID) (int64, error)
}

type ledgerSummer interface {
	SumEntries(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

// NewLedgerAuditJob builds the job that verifies every merchant balance
// equals the sum of its ledger entries. Drift indicates a write path that
// bypassed the ledger engine and is reported, never repaired automatically.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Merchants == nil {
		return nil, fmt.Errorf("merchant reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger summer required")
	}
	return &ledgerAuditJob{
		logg:      params.Logger,
		merchants: params.Merchants,
		ledger:    params.Ledger,
		metrics:   params.Metrics,
	}, nil
}

type ledgerAuditJob struct {
	logg      *logger.Logger
	merchants merchantBalanceReader
	ledger    ledgerSummer
	metrics   *metrics.PaymentMetrics
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	ids, err := j.merchants.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing merchants: %w", err)
	}

	var drifted int
	for _, id := range ids {
		balance, err := j.merchants.Balance(ctx, id)
		if err != nil {
			return fmt.Errorf("reading balance for %s: %w", id, err)
		}
		sum, err := j.ledger.SumEntries(ctx, id)
		if err != nil {
			return fmt.Errorf("summing ledger for %s: %w", id, err)
		}

		drift := balance - sum
		if j.metrics != nil {
			j.metrics.SetBalanceDrift(id.String(), drift)
		}
		if drift != 0 {
			drifted++
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"merchant_id":   id.String(),
				"balance_cents": balance,
				"ledger_sum":    sum,
				"drift_cents":   drift,
			})
			j.logg.Warn(logCtx, "merchant balance does not match ledger sum")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"merchants_checked": len(ids),
		"merchants_drifted": drifted,
	})
	j.logg.Info(logCtx, "ledger audit complete")
	return nil
}
