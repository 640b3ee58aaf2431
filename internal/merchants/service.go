package merchants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rameshsbr/webmanagement-p2p-sub000/pkg/db/models"
	pkgerrors "github.com/rameshsbr/webmanagement-p2p-sub000/pkg/errors"
)

// Service exposes merchant lookups. Balances read here are snapshots; the
// ledger engine owns every mutation.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Merchant, error)
	// Balance re-reads the current balance. Callers that just committed a
	// transition use this instead of trusting a pre-commit value.
	Balance(ctx context.Context, id uuid.UUID) (int64, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
}

// NewService wires a merchant service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchant repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	merchant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading merchant")
	}
	if merchant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
	}
	return merchant, nil
}

func (s *service) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	merchant, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return merchant.BalanceCents, nil
}

func (s *service) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListIDs(ctx)
}
