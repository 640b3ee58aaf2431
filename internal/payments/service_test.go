package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
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
)

type fakeRepo struct {
	payments map[uuid.UUID]*models.PaymentRequest
	flipRows *int64
	created  []*models.PaymentRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: map[uuid.UUID]*models.PaymentRequest{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, payment *models.PaymentRequest) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments[payment.ID] = payment
	f.created = append(f.created, payment)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) FlipToTerminal(ctx context.Context, id uuid.UUID, update TerminalUpdate) (int64, error) {
	if f.flipRows != nil {
		return *f.flipRows, nil
	}
	p, ok := f.payments[id]
	if !ok || p.Status.IsTerminal() {
		return 0, nil
	}
	p.Status = update.Target
	p.AmountCents = update.AmountCents
	p.ProcessedAt = &update.ProcessedAt
	p.ProcessedBy = &update.ProcessedBy
	p.Notes = update.Notes
	p.RejectedReason = update.RejectedReason
	return 1, nil
}

func (f *fakeRepo) AttachEvidence(ctx context.Context, id uuid.UUID, receiptRef string) (int64, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != enums.PaymentStatusPending {
		return 0, nil
	}
	p.Status = enums.PaymentStatusSubmitted
	p.ReceiptRef = &receiptRef
	return 1, nil
}

type ledgerCall struct {
	input ledger.ApplyInput
}

type fakeLedger struct {
	calls   []ledgerCall
	applyFn func(input ledger.ApplyInput) error
}

func (f *fakeLedger) Apply(ctx context.Context, tx *gorm.DB, input ledger.ApplyInput) (*models.LedgerEntry, error) {
	if f.applyFn != nil {
		if err := f.applyFn(input); err != nil {
			return nil, err
		}
	}
	f.calls = append(f.calls, ledgerCall{input: input})
	return &models.LedgerEntry{
		MerchantID:       input.MerchantID,
		AmountCents:      input.AmountCents,
		Reason:           input.Reason,
		RelatedPaymentID: input.RelatedPaymentID,
	}, nil
}

func (f *fakeLedger) ListEntries(ctx context.Context, merchantID uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedger) SumEntries(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	return 0, nil
}

// fakeGuard executes the work directly; guard behavior itself is covered by
// the idempotency package tests.
type fakeGuard struct {
	lastScope string
	lastKey   string
}

func (f *fakeGuard) Run(ctx context.Context, scope, key string, payload []byte, work idempotency.WorkFunc) (json.RawMessage, bool, error) {
	f.lastScope = scope
	f.lastKey = key
	out, err := work(ctx, &gorm.DB{})
	if err != nil {
		return nil, false, err
	}
	raw, err := json.Marshal(out)
	return raw, false, err
}

func (f *fakeGuard) PurgeExpired(ctx context.Context) (int64, error) { return 0, nil }

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeAudit struct {
	records []audit.RecordInput
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, input audit.RecordInput) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, input)
	return nil
}

func (f *fakeAudit) ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLog, error) {
	return nil, nil
}

type fakeNotifier struct {
	events []notify.Event
	err    error
}

func (f *fakeNotifier) PaymentStatusChanged(ctx context.Context, event notify.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type testEngine struct {
	svc      Service
	repo     *fakeRepo
	ledger   *fakeLedger
	guard    *fakeGuard
	audit    *fakeAudit
	notifier *fakeNotifier
}

func newTestEngine(t *testing.T, cfg config.PaymentsConfig) *testEngine {
	t.Helper()
	e := &testEngine{
		repo:     newFakeRepo(),
		ledger:   &fakeLedger{},
		guard:    &fakeGuard{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     e.repo,
		Ledger:   e.ledger,
		Guard:    e.guard,
		Tx:       fakeTx{},
		Audit:    e.audit,
		Notifier: e.notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	e.svc = svc
	return e
}

func seedPayment(e *testEngine, paymentType enums.PaymentType, status enums.PaymentStatus, amount int64) *models.PaymentRequest {
	p := &models.PaymentRequest{
		ID:              uuid.New(),
		Type:            paymentType,
		Status:          status,
		AmountCents:     amount,
		Currency:        enums.CurrencyAUD,
		ReferenceCode:   "DEP-TEST1234",
		UniqueReference: "20260830TESTREF",
		MerchantID:      uuid.New(),
		UserID:          "user-1",
	}
	e.repo.payments[p.ID] = p
	return p
}

func TestCreateDeposit(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})

	input := CreateDepositInput{
		MerchantID:     uuid.New(),
		UserID:         "user-9",
		AmountCents:    10000,
		Currency:       enums.CurrencyAUD,
		Details:        json.RawMessage(`{"payer":"Jo"}`),
		IdempotencyKey: "abc",
	}
	result, replayed, err := e.svc.CreateDeposit(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateDeposit error: %v", err)
	}
	if replayed {
		t.Fatal("fresh intake must not be replayed")
	}
	if !strings.HasPrefix(result.ReferenceCode, "DEP-") {
		t.Fatalf("expected DEP- reference, got %q", result.ReferenceCode)
	}
	if result.UniqueReference == "" || result.Status != enums.PaymentStatusPending {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(e.repo.created) != 1 {
		t.Fatalf("expected one row, got %d", len(e.repo.created))
	}
	row := e.repo.created[0]
	if row.Type != enums.PaymentTypeDeposit || row.Status != enums.PaymentStatusPending {
		t.Fatalf("unexpected row: %+v", row)
	}
	if e.guard.lastScope != "deposit:"+input.MerchantID.String()+":user-9" {
		t.Fatalf("unexpected guard scope %q", e.guard.lastScope)
	}
	if e.guard.lastKey != "abc" {
		t.Fatalf("unexpected guard key %q", e.guard.lastKey)
	}
}

func TestCreateDepositValidation(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})

	_, _, err := e.svc.CreateDeposit(context.Background(), CreateDepositInput{
		MerchantID: uuid.New(),
		UserID:     "user-9",
		Currency:   enums.CurrencyAUD,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if len(e.repo.created) != 0 {
		t.Fatal("invalid input must not create a row")
	}
}

type failingProvider struct{}

func (failingProvider) PrepareDeposit(ctx context.Context, req ProviderRequest) (*ProviderInstructions, error) {
	return nil, errors.New("rail unavailable")
}

type recordingProvider struct {
	lastReq ProviderRequest
}

func (p *recordingProvider) PrepareDeposit(ctx context.Context, req ProviderRequest) (*ProviderInstructions, error) {
	p.lastReq = req
	return &ProviderInstructions{
		ExternalRef:  "VA-123",
		Instructions: json.RawMessage(`{"va_number":"9911"}`),
	}, nil
}

func TestCreateDepositProviderInstructionsStored(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	provider := &recordingProvider{}
	svc, err := NewService(ServiceParams{
		Repo:     e.repo,
		Ledger:   e.ledger,
		Guard:    e.guard,
		Tx:       fakeTx{},
		Provider: provider,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	result, _, err := svc.CreateDeposit(context.Background(), CreateDepositInput{
		MerchantID:  uuid.New(),
		UserID:      "user-3",
		AmountCents: 5000,
		Currency:    enums.CurrencyIDR,
		Details:     json.RawMessage(`{"payer":"Ana"}`),
	})
	if err != nil {
		t.Fatalf("CreateDeposit error: %v", err)
	}
	if provider.lastReq.UniqueReference != result.UniqueReference {
		t.Fatal("provider must see the unique reference generated before persistence")
	}
	if !strings.Contains(string(result.Details), "VA-123") {
		t.Fatalf("provider instructions missing from details: %s", result.Details)
	}
	if !strings.Contains(string(result.Details), "Ana") {
		t.Fatalf("request payload missing from details: %s", result.Details)
	}
}

func TestCreateDepositProviderFailure(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	svc, _ := NewService(ServiceParams{
		Repo:     e.repo,
		Ledger:   e.ledger,
		Guard:    e.guard,
		Tx:       fakeTx{},
		Provider: failingProvider{},
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})

	_, _, err := svc.CreateDeposit(context.Background(), CreateDepositInput{
		MerchantID:  uuid.New(),
		UserID:      "user-3",
		AmountCents: 5000,
		Currency:    enums.CurrencyAUD,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if len(e.repo.created) != 0 {
		t.Fatal("provider failure must not persist a payment")
	}
}

func TestCreateWithdrawal(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})

	bankAccount := uuid.New()
	result, _, err := e.svc.CreateWithdrawal(context.Background(), CreateWithdrawalInput{
		MerchantID:    uuid.New(),
		UserID:        "user-7",
		AmountCents:   2500,
		Currency:      enums.CurrencyUSD,
		BankAccountID: &bankAccount,
	})
	if err != nil {
		t.Fatalf("CreateWithdrawal error: %v", err)
	}
	if !strings.HasPrefix(result.ReferenceCode, "WDL-") {
		t.Fatalf("expected WDL- reference, got %q", result.ReferenceCode)
	}
	if e.repo.created[0].Type != enums.PaymentTypeWithdrawal {
		t.Fatalf("unexpected row type %s", e.repo.created[0].Type)
	}
	if !strings.HasPrefix(e.guard.lastScope, "withdrawal:") {
		t.Fatalf("unexpected guard scope %q", e.guard.lastScope)
	}
}

func TestChangeStatus_ApproveDeposit(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 10000)
	actor := uuid.New()

	updated, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   actor,
	})
	if err != nil {
		t.Fatalf("ChangeStatus error: %v", err)
	}
	if updated.Status != enums.PaymentStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.ProcessedAt == nil || updated.ProcessedBy == nil || *updated.ProcessedBy != actor {
		t.Fatalf("processed fields not recorded: %+v", updated)
	}
	if len(e.ledger.calls) != 1 {
		t.Fatalf("expected exactly one ledger apply, got %d", len(e.ledger.calls))
	}
	call := e.ledger.calls[0].input
	if call.AmountCents != 10000 || call.MerchantID != p.MerchantID {
		t.Fatalf("unexpected ledger delta: %+v", call)
	}
	if call.RelatedPaymentID == nil || *call.RelatedPaymentID != p.ID {
		t.Fatal("ledger entry must reference the payment")
	}
	if len(e.audit.records) != 1 || len(e.notifier.events) != 1 {
		t.Fatalf("expected audit and notification, got %d/%d", len(e.audit.records), len(e.notifier.events))
	}
}

func TestChangeStatus_TerminalIsFinal(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusApproved, 10000)

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if len(e.ledger.calls) != 0 {
		t.Fatal("terminal payment must not touch the ledger")
	}
}

func TestChangeStatus_LostRace(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusSubmitted, 10000)

	// Zero rows affected models a concurrent caller flipping the status
	// between our read and our update.
	var zero int64
	e.repo.flipRows = &zero

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusRejected,
		ActorID:   uuid.New(),
		Comment:   "dup",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE on lost race, got %v", err)
	}
	if len(e.ledger.calls) != 0 {
		t.Fatal("lost race must not touch the ledger")
	}
	if len(e.notifier.events) != 0 {
		t.Fatal("lost race must not notify")
	}
}

func TestChangeStatus_RejectRequiresComment(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusSubmitted, 10000)

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusRejected,
		ActorID:   uuid.New(),
		Comment:   "   ",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeCommentRequired) {
		t.Fatalf("expected COMMENT_REQUIRED, got %v", err)
	}

	updated, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusRejected,
		ActorID:   uuid.New(),
		Comment:   "unreadable receipt",
	})
	if err != nil {
		t.Fatalf("ChangeStatus error: %v", err)
	}
	if updated.RejectedReason == nil || *updated.RejectedReason != "unreadable receipt" {
		t.Fatalf("rejection reason not stored: %+v", updated)
	}
	if len(e.ledger.calls) != 0 {
		t.Fatal("rejection must not touch the ledger")
	}
}

func TestChangeStatus_AmountOverride(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 10000)
	override := int64(12000)

	// Changing the amount without an explanation is refused.
	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID:           p.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeCommentRequired) {
		t.Fatalf("expected COMMENT_REQUIRED, got %v", err)
	}

	updated, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID:           p.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
		Comment:             "adjusted per receipt",
	})
	if err != nil {
		t.Fatalf("ChangeStatus error: %v", err)
	}
	if updated.AmountCents != 12000 {
		t.Fatalf("expected revised amount 12000, got %d", updated.AmountCents)
	}
	if e.ledger.calls[0].input.AmountCents != 12000 {
		t.Fatalf("ledger must apply the revised amount, got %d", e.ledger.calls[0].input.AmountCents)
	}
}

func TestChangeStatus_OverrideEqualToOriginalNeedsNoComment(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 10000)
	override := int64(10000)

	if _, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID:           p.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
	}); err != nil {
		t.Fatalf("override equal to original must not require a comment: %v", err)
	}
}

func TestChangeStatus_NonPositiveOverride(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 10000)
	override := int64(0)

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID:           p.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
		Comment:             "zeroed",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAmountInvalid) {
		t.Fatalf("expected AMOUNT_INVALID, got %v", err)
	}
}

func TestChangeStatus_WithdrawalOverridePolicy(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeWithdrawal, enums.PaymentStatusPending, 5000)
	override := int64(4000)

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeWithdrawal, ChangeStatusParams{
		PaymentID:           p.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
		Comment:             "partial payout",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAmountInvalid) {
		t.Fatalf("withdrawal override must be refused by default, got %v", err)
	}

	allowed := newTestEngine(t, config.PaymentsConfig{AllowWithdrawalOverride: true})
	p2 := seedPayment(allowed, enums.PaymentTypeWithdrawal, enums.PaymentStatusPending, 5000)

	updated, err := allowed.svc.ChangeStatus(context.Background(), enums.PaymentTypeWithdrawal, ChangeStatusParams{
		PaymentID:           p2.ID,
		Target:              enums.PaymentStatusApproved,
		ActorID:             uuid.New(),
		AmountCentsOverride: &override,
		Comment:             "partial payout",
	})
	if err != nil {
		t.Fatalf("ChangeStatus error with override enabled: %v", err)
	}
	if allowed.ledger.calls[0].input.AmountCents != -4000 {
		t.Fatalf("withdrawal approval must debit the revised amount, got %d", allowed.ledger.calls[0].input.AmountCents)
	}
	if updated.AmountCents != 4000 {
		t.Fatalf("expected revised amount 4000, got %d", updated.AmountCents)
	}
}

func TestChangeStatus_WithdrawalInsufficientFunds(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeWithdrawal, enums.PaymentStatusSubmitted, 5000)

	e.ledger.applyFn = func(input ledger.ApplyInput) error {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "merchant balance cannot absorb debit")
	}

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeWithdrawal, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}
	if len(e.notifier.events) != 0 || len(e.audit.records) != 0 {
		t.Fatal("failed transition must not run post-commit side effects")
	}
}

func TestChangeStatus_TypeMismatchAndNotFound(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 1000)

	_, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeWithdrawal, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeTypeMismatch) {
		t.Fatalf("expected TYPE_MISMATCH, got %v", err)
	}

	_, err = e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: uuid.New(),
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestChangeStatus_SideEffectFailuresAreSwallowed(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 1000)
	e.audit.err = errors.New("audit store down")
	e.notifier.err = errors.New("pubsub down")

	updated, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("side effect failures must not fail the transition: %v", err)
	}
	if updated.Status != enums.PaymentStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
}

func TestSubmitEvidence(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 1000)

	updated, err := e.svc.SubmitEvidence(context.Background(), p.ID, "receipt-77")
	if err != nil {
		t.Fatalf("SubmitEvidence error: %v", err)
	}
	if updated.Status != enums.PaymentStatusSubmitted {
		t.Fatalf("expected submitted, got %s", updated.Status)
	}
	if updated.ReceiptRef == nil || *updated.ReceiptRef != "receipt-77" {
		t.Fatalf("receipt not stored: %+v", updated)
	}

	// Already submitted; a second attachment is refused.
	if _, err := e.svc.SubmitEvidence(context.Background(), p.ID, "receipt-78"); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestSubmitEvidence_WithdrawalsRefused(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeWithdrawal, enums.PaymentStatusPending, 1000)

	if _, err := e.svc.SubmitEvidence(context.Background(), p.ID, "receipt-1"); !pkgerrors.HasCode(err, pkgerrors.CodeTypeMismatch) {
		t.Fatalf("expected TYPE_MISMATCH, got %v", err)
	}
}

func TestChangeStatus_ProcessedAtIsUTC(t *testing.T) {
	e := newTestEngine(t, config.PaymentsConfig{})
	p := seedPayment(e, enums.PaymentTypeDeposit, enums.PaymentStatusPending, 1000)

	before := time.Now().UTC().Add(-time.Second)
	updated, err := e.svc.ChangeStatus(context.Background(), enums.PaymentTypeDeposit, ChangeStatusParams{
		PaymentID: p.ID,
		Target:    enums.PaymentStatusApproved,
		ActorID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("ChangeStatus error: %v", err)
	}
	if updated.ProcessedAt == nil || updated.ProcessedAt.Before(before) {
		t.Fatalf("processed_at not set correctly: %v", updated.ProcessedAt)
	}
}
