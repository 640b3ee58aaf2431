package settlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/audit"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/ledger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
	pkgerrors "github.com/rameshsbr/webmanagement-p2p-sub000/pkg/errors"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
)

// Service creates manual merchant account entries. A settlement records
// money wired out to the merchant and debits the balance; a topup credits
// it. Both write the account entry and the ledger movement in one
// transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.MerchantAccountEntry, error)
	ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.MerchantAccountEntry, error)
}

// TxRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput captures one staff-entered account movement. Amount is a
// decimal string in major units ("1234.50"), as staff tooling submits it.
type CreateInput struct {
	MerchantID uuid.UUID
	Type       enums.AccountEntryType
	Amount     string
	Method     string
	Note       string
	ReceiptRef string
	ActorID    uuid.UUID
}

type service struct {
	repo   Repository
	ledger ledger.Service
	tx     TxRunner
	audit  audit.Service
	logg   *logger.Logger
}

// NewService wires a settlement service. Audit is optional.
func NewService(repo Repository, ledgerSvc ledger.Service, tx TxRunner, auditSvc audit.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("settlement repository required")
	}
	if ledgerSvc == nil {
		return nil, errors.New("ledger service required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, audit: auditSvc, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.MerchantAccountEntry, error) {
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry type %q", input.Type))
	}
	method := strings.TrimSpace(input.Method)
	if method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method is required")
	}

	amountCents, err := parseAmountCents(input.Amount)
	if err != nil {
		return nil, err
	}

	delta := amountCents
	reason := "balance topup"
	if input.Type == enums.AccountEntryTypeSettlement {
		delta = -amountCents
		reason = "settlement payout"
	}

	var entry *models.MerchantAccountEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerEntry, err := s.ledger.Apply(ctx, tx, ledger.ApplyInput{
			MerchantID:  input.MerchantID,
			AmountCents: delta,
			Reason:      reason,
		})
		if err != nil {
			return err
		}

		entry = &models.MerchantAccountEntry{
			MerchantID:    input.MerchantID,
			Type:          input.Type,
			AmountCents:   amountCents,
			Method:        method,
			LedgerEntryID: ledgerEntry.ID,
			ActorID:       input.ActorID,
		}
		if note := strings.TrimSpace(input.Note); note != "" {
			entry.Note = &note
		}
		if ref := strings.TrimSpace(input.ReceiptRef); ref != "" {
			entry.ReceiptRef = &ref
		}
		if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting account entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, entry, input)
	return entry, nil
}

func (s *service) ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.MerchantAccountEntry, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	return s.repo.ListByMerchantID(ctx, merchantID)
}

// recordAudit runs after the transaction; a failed audit write is logged
// and swallowed.
func (s *service) recordAudit(ctx context.Context, entry *models.MerchantAccountEntry, input CreateInput) {
	if s.audit == nil || entry == nil {
		return
	}
	metadata, _ := json.Marshal(map[string]any{
		"type":         entry.Type,
		"amount_cents": entry.AmountCents,
		"method":       entry.Method,
	})
	if err := s.audit.Record(ctx, audit.RecordInput{
		ActorID:    input.ActorID,
		Action:     fmt.Sprintf("account_entry.%s", entry.Type),
		TargetType: audit.TargetAccountEntry,
		TargetID:   entry.ID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.logg.Error(s.logg.WithMerchantID(ctx, entry.MerchantID.String()), "recording account entry audit", err)
	}
}

// parseAmountCents converts a major-unit decimal string to cents. Sub-cent
// precision and non-positive values are refused.
func parseAmountCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, fmt.Sprintf("amount %q is not a number", raw))
	}
	cents := amount.Shift(2)
	if !cents.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount has sub-cent precision")
	}
	if !cents.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount must be positive")
	}
	return cents.IntPart(), nil
}
