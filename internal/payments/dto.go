package payments

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// CreateDepositInput captures one deposit intake request.
type CreateDepositInput struct {
	MerchantID     uuid.UUID       `json:"merchant_id" validate:"required"`
	UserID         string          `json:"user_id" validate:"required"`
	AmountCents    int64           `json:"amount_cents" validate:"required,gt=0"`
	Currency       enums.Currency  `json:"currency" validate:"required"`
	MethodID       *uuid.UUID      `json:"method_id,omitempty"`
	BankAccountID  *uuid.UUID      `json:"bank_account_id,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	IdempotencyKey string          `json:"-"`
}

// CreateWithdrawalInput captures one withdrawal intake request.
type CreateWithdrawalInput struct {
	MerchantID     uuid.UUID       `json:"merchant_id" validate:"required"`
	UserID         string          `json:"user_id" validate:"required"`
	AmountCents    int64           `json:"amount_cents" validate:"required,gt=0"`
	Currency       enums.Currency  `json:"currency" validate:"required"`
	BankAccountID  *uuid.UUID      `json:"bank_account_id" validate:"required"`
	Details        json.RawMessage `json:"details,omitempty"`
	IdempotencyKey string          `json:"-"`
}

// CreateResult is the replayable outcome of an intake call. It is what the
// idempotency guard serializes, so retries with the same key observe the
// same reference codes.
type CreateResult struct {
	PaymentID       uuid.UUID           `json:"payment_id"`
	ReferenceCode   string              `json:"reference_code"`
	UniqueReference string              `json:"unique_reference"`
	Status          enums.PaymentStatus `json:"status"`
	AmountCents     int64               `json:"amount_cents"`
	Currency        enums.Currency      `json:"currency"`
	Details         json.RawMessage     `json:"details,omitempty"`
}

// ChangeStatusParams drives one status transition attempt.
type ChangeStatusParams struct {
	PaymentID           uuid.UUID
	Target              enums.PaymentStatus
	ActorID             uuid.UUID
	AmountCentsOverride *int64
	Comment             string
}
