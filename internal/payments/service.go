package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/audit"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/idempotency"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/ledger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/internal/notify"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/config"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
	pkgerrors "github.com/rameshsbr/webmanagement-p2p-sub000/pkg/errors"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/logger"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/metrics"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/refgen"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/validate"
)

// Reference code prefixes shown on receipts.
const (
	depositPrefix    = "DEP"
	withdrawalPrefix = "WDL"
)

// Service is the payment lifecycle engine: intake behind the idempotency
// guard, evidence submission, and the terminal status transition that drives
// the ledger.
type Service interface {
	CreateDeposit(ctx context.Context, input CreateDepositInput) (*CreateResult, bool, error)
	CreateWithdrawal(ctx context.Context, input CreateWithdrawalInput) (*CreateResult, bool, error)
	SubmitEvidence(ctx context.Context, paymentID uuid.UUID, receiptRef string) (*models.PaymentRequest, error)
	// ChangeStatus moves a payment to a terminal state. The status flip, any
	// amount revision, the ledger entry and the balance delta commit in one
	// transaction; audit and notification run best-effort afterwards.
	ChangeStatus(ctx context.Context, paymentType enums.PaymentType, params ChangeStatusParams) (*models.PaymentRequest, error)
	Get(ctx context.Context, paymentID uuid.UUID) (*models.PaymentRequest, error)
}

// TxRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the collaborators of the payment engine. Audit,
// Notifier and Metrics are optional; everything else is required.
type ServiceParams struct {
	Repo     Repository
	Ledger   ledger.Service
	Guard    idempotency.Guard
	Tx       TxRunner
	Provider Provider
	Audit    audit.Service
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
	Config   config.PaymentsConfig
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	guard    idempotency.Guard
	tx       TxRunner
	provider Provider
	audit    audit.Service
	notifier notify.Notifier
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
	cfg      config.PaymentsConfig
	now      func() time.Time
}

// NewService wires the payment engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payment repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service required")
	}
	if params.Guard == nil {
		return nil, errors.New("idempotency guard required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Provider == nil {
		params.Provider = NoopProvider{}
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		repo:     params.Repo,
		ledger:   params.Ledger,
		guard:    params.Guard,
		tx:       params.Tx,
		provider: params.Provider,
		audit:    params.Audit,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Config,
		now:      time.Now,
	}, nil
}

func (s *service) CreateDeposit(ctx context.Context, input CreateDepositInput) (*CreateResult, bool, error) {
	if err := validate.Struct(input); err != nil {
		return nil, false, err
	}
	if !input.Currency.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing intake request")
	}

	scope := fmt.Sprintf("deposit:%s:%s", input.MerchantID, input.UserID)
	raw, replayed, err := s.guard.Run(ctx, scope, input.IdempotencyKey, payload, func(ctx context.Context, tx *gorm.DB) (any, error) {
		return s.createDeposit(ctx, tx, input)
	})
	if err != nil {
		return nil, false, err
	}
	return decodeCreateResult(raw, replayed)
}

func (s *service) createDeposit(ctx context.Context, tx *gorm.DB, input CreateDepositInput) (*CreateResult, error) {
	uniqueRef, err := refgen.UniqueRef()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating unique reference")
	}
	code, err := refgen.Code(depositPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reference code")
	}

	// The rail is consulted before the row exists so its instructions land
	// in the stored details.
	instructions, err := s.provider.PrepareDeposit(ctx, ProviderRequest{
		MerchantID:      input.MerchantID,
		UserID:          input.UserID,
		AmountCents:     input.AmountCents,
		Currency:        input.Currency,
		UniqueReference: uniqueRef,
		Details:         input.Details,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "preparing deposit with provider")
	}

	details, err := mergeDetails(input.Details, instructions)
	if err != nil {
		return nil, err
	}

	payment := &models.PaymentRequest{
		Type:            enums.PaymentTypeDeposit,
		Status:          enums.PaymentStatusPending,
		AmountCents:     input.AmountCents,
		Currency:        input.Currency,
		ReferenceCode:   code,
		UniqueReference: uniqueRef,
		MerchantID:      input.MerchantID,
		UserID:          input.UserID,
		BankAccountID:   input.BankAccountID,
		MethodID:        input.MethodID,
		Details:         details,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting deposit")
	}
	return resultFromPayment(payment), nil
}

func (s *service) CreateWithdrawal(ctx context.Context, input CreateWithdrawalInput) (*CreateResult, bool, error) {
	if err := validate.Struct(input); err != nil {
		return nil, false, err
	}
	if !input.Currency.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing intake request")
	}

	scope := fmt.Sprintf("withdrawal:%s:%s", input.MerchantID, input.UserID)
	raw, replayed, err := s.guard.Run(ctx, scope, input.IdempotencyKey, payload, func(ctx context.Context, tx *gorm.DB) (any, error) {
		return s.createWithdrawal(ctx, tx, input)
	})
	if err != nil {
		return nil, false, err
	}
	return decodeCreateResult(raw, replayed)
}

func (s *service) createWithdrawal(ctx context.Context, tx *gorm.DB, input CreateWithdrawalInput) (*CreateResult, error) {
	uniqueRef, err := refgen.UniqueRef()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating unique reference")
	}
	code, err := refgen.Code(withdrawalPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reference code")
	}

	payment := &models.PaymentRequest{
		Type:            enums.PaymentTypeWithdrawal,
		Status:          enums.PaymentStatusPending,
		AmountCents:     input.AmountCents,
		Currency:        input.Currency,
		ReferenceCode:   code,
		UniqueReference: uniqueRef,
		MerchantID:      input.MerchantID,
		UserID:          input.UserID,
		BankAccountID:   input.BankAccountID,
		Details:         input.Details,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting withdrawal")
	}
	return resultFromPayment(payment), nil
}

func (s *service) SubmitEvidence(ctx context.Context, paymentID uuid.UUID, receiptRef string) (*models.PaymentRequest, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	receiptRef = strings.TrimSpace(receiptRef)
	if receiptRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt reference is required")
	}

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.Type != enums.PaymentTypeDeposit {
		return nil, pkgerrors.New(pkgerrors.CodeTypeMismatch, "evidence applies to deposits only")
	}

	rows, err := s.repo.AttachEvidence(ctx, paymentID, receiptRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching evidence")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "payment is not awaiting evidence")
	}

	updated, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading payment")
	}
	return updated, nil
}

func (s *service) ChangeStatus(ctx context.Context, paymentType enums.PaymentType, params ChangeStatusParams) (*models.PaymentRequest, error) {
	if !paymentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment type %q", paymentType))
	}
	if params.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if params.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !params.Target.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("target status %q is not a terminal state", params.Target))
	}
	comment := strings.TrimSpace(params.Comment)

	var updated *models.PaymentRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.GetByID(ctx, params.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if payment.Type != paymentType {
			return pkgerrors.New(pkgerrors.CodeTypeMismatch, fmt.Sprintf("payment is a %s, not a %s", payment.Type, paymentType))
		}
		if payment.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("payment is already %s", payment.Status))
		}

		effective, err := s.resolveEffectiveAmount(payment, params)
		if err != nil {
			return err
		}
		if params.Target == enums.PaymentStatusRejected && comment == "" {
			return pkgerrors.New(pkgerrors.CodeCommentRequired, "a comment is required to reject a payment")
		}
		if params.Target == enums.PaymentStatusApproved && effective != payment.AmountCents && comment == "" {
			return pkgerrors.New(pkgerrors.CodeCommentRequired, "a comment is required when adjusting the amount")
		}

		update := TerminalUpdate{
			Target:      params.Target,
			AmountCents: effective,
			ProcessedAt: s.now().UTC(),
			ProcessedBy: params.ActorID,
		}
		if params.Target == enums.PaymentStatusRejected {
			update.RejectedReason = &comment
		} else if comment != "" {
			update.Notes = &comment
		}

		rows, err := repo.FlipToTerminal(ctx, params.PaymentID, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating payment status")
		}
		if rows == 0 {
			// Another caller won the race between our read and this update.
			return pkgerrors.New(pkgerrors.CodeInvalidState, "payment was processed concurrently")
		}

		if params.Target == enums.PaymentStatusApproved {
			delta := effective
			reason := "deposit approved"
			if paymentType == enums.PaymentTypeWithdrawal {
				delta = -effective
				reason = "withdrawal approved"
			}
			if _, err := s.ledger.Apply(ctx, tx, ledger.ApplyInput{
				MerchantID:       payment.MerchantID,
				AmountCents:      delta,
				Reason:           reason,
				RelatedPaymentID: &payment.ID,
			}); err != nil {
				return err
			}
		}

		updated, err = repo.GetByID(ctx, params.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading payment")
		}
		return nil
	})

	s.observeTransition(paymentType, params.Target, err)
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, params.ActorID, comment)
	return updated, nil
}

func (s *service) Get(ctx context.Context, paymentID uuid.UUID) (*models.PaymentRequest, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *service) resolveEffectiveAmount(payment *models.PaymentRequest, params ChangeStatusParams) (int64, error) {
	if params.AmountCentsOverride == nil {
		return payment.AmountCents, nil
	}
	override := *params.AmountCentsOverride
	if override <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount override must be positive")
	}
	if payment.Type == enums.PaymentTypeWithdrawal && override != payment.AmountCents && !s.cfg.AllowWithdrawalOverride {
		return 0, pkgerrors.New(pkgerrors.CodeAmountInvalid, "amount override is not permitted for withdrawals")
	}
	return override, nil
}

// afterTransition runs the side effects excluded from the transaction.
// Failures here are logged and swallowed; the financial change has already
// committed.
func (s *service) afterTransition(ctx context.Context, payment *models.PaymentRequest, actorID uuid.UUID, comment string) {
	if payment == nil {
		return
	}
	var errs error
	if s.audit != nil {
		metadata, _ := json.Marshal(map[string]any{
			"status":       payment.Status,
			"amount_cents": payment.AmountCents,
			"comment":      comment,
		})
		errs = multierr.Append(errs, s.audit.Record(ctx, audit.RecordInput{
			ActorID:    actorID,
			Action:     fmt.Sprintf("payment.%s", payment.Status),
			TargetType: audit.TargetPayment,
			TargetID:   payment.ID.String(),
			Metadata:   metadata,
		}))
	}
	if s.notifier != nil {
		errs = multierr.Append(errs, s.notifier.PaymentStatusChanged(ctx, notify.Event{
			MerchantID:    payment.MerchantID,
			PaymentID:     payment.ID,
			ReferenceCode: payment.ReferenceCode,
			Type:          payment.Type,
			Status:        payment.Status,
			AmountCents:   payment.AmountCents,
			Currency:      payment.Currency,
		}))
	}
	if errs != nil {
		s.logg.Error(s.logg.WithPaymentID(ctx, payment.ID.String()), "post-commit side effects failed", errs)
	}
}

func (s *service) observeTransition(paymentType enums.PaymentType, target enums.PaymentStatus, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if appErr := pkgerrors.As(err); appErr != nil {
			outcome = strings.ToLower(string(appErr.Code()))
		}
	}
	s.metrics.ObserveTransition(string(paymentType), string(target), outcome)
}

func decodeCreateResult(raw json.RawMessage, replayed bool) (*CreateResult, bool, error) {
	var result CreateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, replayed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding intake result")
	}
	return &result, replayed, nil
}

func resultFromPayment(payment *models.PaymentRequest) *CreateResult {
	return &CreateResult{
		PaymentID:       payment.ID,
		ReferenceCode:   payment.ReferenceCode,
		UniqueReference: payment.UniqueReference,
		Status:          payment.Status,
		AmountCents:     payment.AmountCents,
		Currency:        payment.Currency,
		Details:         payment.Details,
	}
}

func mergeDetails(request json.RawMessage, instructions *ProviderInstructions) (json.RawMessage, error) {
	if instructions == nil || (instructions.ExternalRef == "" && len(instructions.Instructions) == 0) {
		return request, nil
	}
	merged, err := json.Marshal(map[string]any{
		"request":  request,
		"provider": instructions,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging provider instructions")
	}
	return merged, nil
}
