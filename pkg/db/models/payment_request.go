package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// PaymentRequest is one attempted money movement on behalf of a merchant's
// end user. Details carries the per-method payload (payer info, provider
// instructions) and is stored and returned opaquely.
type PaymentRequest struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type            enums.PaymentType   `gorm:"column:type;type:text;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null"`
	ReferenceCode   string              `gorm:"column:reference_code;not null"`
	UniqueReference string              `gorm:"column:unique_reference;not null;uniqueIndex:uq_payment_unique_reference"`
	MerchantID      uuid.UUID           `gorm:"column:merchant_id;type:uuid;not null"`
	UserID          string              `gorm:"column:user_id;not null"`
	BankAccountID   *uuid.UUID          `gorm:"column:bank_account_id;type:uuid"`
	MethodID        *uuid.UUID          `gorm:"column:method_id;type:uuid"`
	Details         json.RawMessage     `gorm:"column:details;type:jsonb"`
	ReceiptRef      *string             `gorm:"column:receipt_ref"`
	Notes           *string             `gorm:"column:notes"`
	RejectedReason  *string             `gorm:"column:rejected_reason"`
	ProcessedAt     *time.Time          `gorm:"column:processed_at"`
	ProcessedBy     *uuid.UUID          `gorm:"column:processed_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
