package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// MerchantAccountEntry is a manual, staff-created balance movement: a wire
// settlement paid out to the merchant or a balance top-up. It is explained
// by a ledger entry written in the same transaction.
type MerchantAccountEntry struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID    uuid.UUID              `gorm:"column:merchant_id;type:uuid;not null;index"`
	Type          enums.AccountEntryType `gorm:"column:type;type:text;not null"`
	AmountCents   int64                  `gorm:"column:amount_cents;not null"`
	Method        string                 `gorm:"column:method;not null"`
	Note          *string                `gorm:"column:note"`
	ReceiptRef    *string                `gorm:"column:receipt_ref"`
	LedgerEntryID uuid.UUID              `gorm:"column:ledger_entry_id;type:uuid;not null"`
	ActorID       uuid.UUID              `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
