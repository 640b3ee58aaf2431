package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry records an immutable, signed balance change for one merchant.
// A positive amount increases the balance, a negative amount decreases it.
// Entries are append-only; the sum of all entries for a merchant equals the
// merchant's balance at all times.
type LedgerEntry struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID       uuid.UUID  `gorm:"column:merchant_id;type:uuid;not null;index"`
	AmountCents      int64      `gorm:"column:amount_cents;not null"`
	Reason           string     `gorm:"column:reason;not null"`
	RelatedPaymentID *uuid.UUID `gorm:"column:related_payment_id;type:uuid"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}
