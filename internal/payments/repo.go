package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// TerminalUpdate carries the fields a successful transition writes alongside
// the status flip.
type TerminalUpdate struct {
	Target         enums.PaymentStatus
	AmountCents    int64
	ProcessedAt    time.Time
	ProcessedBy    uuid.UUID
	Notes          *string
	RejectedReason *string
}

// Repository manages persistence for payment requests. The conditional
// updates return rows affected; zero means the precondition did not hold
// when the UPDATE ran, which callers surface as a state error.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	// FlipToTerminal moves an open payment to a terminal status. The WHERE
	// clause re-checks the open-status set so concurrent callers race on the
	// database row, not on stale in-memory state.
	FlipToTerminal(ctx context.Context, id uuid.UUID, update TerminalUpdate) (int64, error)
	// AttachEvidence moves a PENDING deposit to SUBMITTED with its receipt.
	AttachEvidence(ctx context.Context, id uuid.UUID, receiptRef string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	var payment models.PaymentRequest
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FlipToTerminal(ctx context.Context, id uuid.UUID, update TerminalUpdate) (int64, error) {
	fields := map[string]any{
		"status":       update.Target,
		"amount_cents": update.AmountCents,
		"processed_at": update.ProcessedAt,
		"processed_by": update.ProcessedBy,
	}
	if update.Notes != nil {
		fields["notes"] = *update.Notes
	}
	if update.RejectedReason != nil {
		fields["rejected_reason"] = *update.RejectedReason
	}

	res := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("id = ? AND status IN ?", id, enums.OpenPaymentStatuses).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) AttachEvidence(ctx context.Context, id uuid.UUID, receiptRef string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":      enums.PaymentStatusSubmitted,
			"receipt_ref": receiptRef,
		})
	return res.RowsAffected, res.Error
}
