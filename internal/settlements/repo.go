package settlements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
)

// Repository manages persistence for merchant account entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.MerchantAccountEntry) error
	ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.MerchantAccountEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.MerchantAccountEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByMerchantID(ctx context.Context, merchantID uuid.UUID) ([]models.MerchantAccountEntry, error) {
	var entries []models.MerchantAccountEntry
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
