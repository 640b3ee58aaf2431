package payments

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/enums"
)

// Provider prepares a deposit against an external payment rail. It is
// consulted before the payment row is persisted; whatever it returns is
// stored opaquely in the payment's details and displayed to the payer.
// Retry and failure policy of the rail itself lives behind the adapter.
type Provider interface {
	PrepareDeposit(ctx context.Context, req ProviderRequest) (*ProviderInstructions, error)
}

// ProviderRequest is the subset of intake data an external rail needs.
type ProviderRequest struct {
	MerchantID      uuid.UUID
	UserID          string
	AmountCents     int64
	Currency        enums.Currency
	UniqueReference string
	Details         json.RawMessage
}

// ProviderInstructions is what the rail hands back for display and
// reconciliation.
type ProviderInstructions struct {
	ExternalRef  string          `json:"external_ref,omitempty"`
	Instructions json.RawMessage `json:"instructions,omitempty"`
}

// NoopProvider satisfies Provider for deployments without an external rail;
// the payer instructions are whatever the caller supplied.
type NoopProvider struct{}

func (NoopProvider) PrepareDeposit(ctx context.Context, req ProviderRequest) (*ProviderInstructions, error) {
	return &ProviderInstructions{}, nil
}
