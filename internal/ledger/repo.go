package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
)

// Repository manages persistence for ledger entries and merchant balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	// AdjustBalance applies amountCents to the merchant's running balance in a
	// single UPDATE. When guarded is true the update only matches rows whose
	// balance can absorb the debit; the caller must treat zero rows affected
	// as an insufficient-funds signal.
	AdjustBalance(ctx context.Context, merchantID uuid.UUID, amountCents int64, guarded bool) (int64, error)
	ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.LedgerEntry, error)
	SumByMerchantID(ctx context.Context, merchantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) AdjustBalance(ctx context.Context, merchantID uuid.UUID, amountCents int64, guarded bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Merchant{}).
		Where("id = ?", merchantID)
	if guarded {
		query = query.Where("balance_cents + ? >= 0", amountCents)
	}
	res := query.Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumByMerchantID(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("merchant_id = ?", merchantID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
