package history

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=history
type Repository interface {
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Entry, error)
}

// Service exposes the read side of the ledger. Writes happen only inside
// claim transactions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListByClaim(ctx, claimID)
}
