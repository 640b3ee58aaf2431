package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
)

// Target types recorded against audit rows.
const (
	TargetPayment      = "payment_request"
	TargetAccountEntry = "merchant_account_entry"
)

// Service records staff and system actions. Callers invoke it after their
// own transaction commits and tolerate failures; a lost audit row never
// rolls back a financial change.
type Service interface {
	Record(ctx context.Context, input RecordInput) error
	ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLog, error)
}

type service struct {
	repo Repository
}

// RecordInput captures one audited action.
type RecordInput struct {
	ActorID    uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	Metadata   json.RawMessage
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) error {
	if input.ActorID == uuid.Nil {
		return fmt.Errorf("actor id is required")
	}
	if input.Action == "" {
		return fmt.Errorf("action is required")
	}
	if input.TargetType == "" || input.TargetID == "" {
		return fmt.Errorf("target is required")
	}
	return s.repo.Create(ctx, &models.AuditLog{
		ActorID:    input.ActorID,
		Action:     input.Action,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		Metadata:   input.Metadata,
	})
}

func (s *service) ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditLog, error) {
	return s.repo.ListByTarget(ctx, targetType, targetID)
}
