package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	pkgerrors "github.com/rameshsbr/webmanagement-p2p-sub000/pkg/errors"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/metrics"
)

// Service is the only component allowed to mutate a merchant's balance.
// Every balance change is explained by exactly one ledger entry written in
// the same transaction.
type Service interface {
	// Apply adjusts the merchant balance by input.AmountCents and appends the
	// explaining entry. It runs inside the caller's transaction and never
	// opens its own, so the caller's commit/rollback covers both writes.
	// The new balance is deliberately not returned; callers that need it
	// re-read after commit.
	Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, merchantID uuid.UUID) ([]models.LedgerEntry, error)
	SumEntries(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

type service struct {
	repo    Repository
	metrics *metrics.PaymentMetrics
}

// ApplyInput captures one signed balance movement.
type ApplyInput struct {
	MerchantID       uuid.UUID
	AmountCents      int64
	Reason           string
	RelatedPaymentID *uuid.UUID
}

// NewService wires a ledger service with the provided repository. Metrics
// are optional.
func NewService(repo Repository, pm *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, metrics: pm}, nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger apply requires a transaction")
	}
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount must be non-zero")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	repo := s.repo.WithTx(tx)

	// Debits are guarded so the balance can never go negative. The UPDATE
	// matching zero rows means either the merchant is missing or the balance
	// cannot absorb the debit; an unguarded probe distinguishes the two.
	guarded := input.AmountCents < 0
	rows, err := repo.AdjustBalance(ctx, input.MerchantID, input.AmountCents, guarded)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting merchant balance")
	}
	if rows == 0 {
		if guarded {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "merchant balance cannot absorb debit")
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
	}

	entry := &models.LedgerEntry{
		MerchantID:       input.MerchantID,
		AmountCents:      input.AmountCents,
		Reason:           input.Reason,
		RelatedPaymentID: input.RelatedPaymentID,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating ledger entry")
	}

	if s.metrics != nil {
		s.metrics.ObserveLedgerApply(input.AmountCents)
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, merchantID uuid.UUID) ([]models.LedgerEntry, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	return s.repo.ListByMerchantID(ctx, merchantID)
}

func (s *service) SumEntries(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	if merchantID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	return s.repo.SumByMerchantID(ctx, merchantID)
}
