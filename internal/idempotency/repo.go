package idempotency

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// Repository manages persistence for idempotency records. The unique index
// on (scope, key) is the mutual-exclusion primitive; Insert surfaces the
// raw driver error so callers can detect the constraint violation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, record *models.IdempotencyRecord) error
	GetByScopeKey(ctx context.Context, scope, key string) (*models.IdempotencyRecord, error)
	MarkCompleted(ctx context.Context, scope, key string, result []byte) error
	Delete(ctx context.Context, scope, key string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an idempotency repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, record *models.IdempotencyRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) GetByScopeKey(ctx context.Context, scope, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) MarkCompleted(ctx context.Context, scope, key string, result []byte) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("scope = ? AND key = ?", scope, key).
		Updates(map[string]any{
			"state":  enums.IdempotencyStateCompleted,
			"result": result,
		}).Error
}

func (r *repository) Delete(ctx context.Context, scope, key string) error {
	return r.db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		Delete(&models.IdempotencyRecord{}).Error
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}
