package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// Merchant represents the canonical tenant model. BalanceCents is the
// authoritative running balance and is only ever mutated by the ledger
// engine, in the same transaction as the entry explaining the change.
type Merchant struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string         `gorm:"column:name;not null"`
	DefaultCurrency enums.Currency `gorm:"column:default_currency;type:text;not null;default:'AUD'"`
	BalanceCents    int64          `gorm:"column:balance_cents;not null;default:0"`
	AllowedMethods  pq.StringArray `gorm:"column:allowed_methods;type:text[]"`
	ContactEmail    *string        `gorm:"column:contact_email"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
