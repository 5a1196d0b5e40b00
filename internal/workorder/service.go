package workorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=workorder
type Repository interface {
	GetWorkOrder(ctx context.Context, id uuid.UUID) (*WorkOrder, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*WorkOrder, error)
	HasOpen(ctx context.Context, claimID uuid.UUID, t Type) (bool, error)
	CloseWorkOrder(ctx context.Context, id uuid.UUID, status Status, endTime time.Time) error
}

// Service is the work order tracker. It answers the "is there an open work
// order" question the lifecycle engine guards on, and closes work orders
// outside a claim transition (e.g. abandoning one before opening a
// replacement).
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WorkOrder, error) {
	return s.repo.GetWorkOrder(ctx, id)
}

func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*WorkOrder, error) {
	return s.repo.ListByClaim(ctx, claimID)
}

func (s *Service) HasOpen(ctx context.Context, claimID uuid.UUID, t Type) (bool, error) {
	return s.repo.HasOpen(ctx, claimID, t)
}

// Close moves an open work order to done or closed. Finished work orders
// cannot be reopened; a new work order must be created instead.
func (s *Service) Close(ctx context.Context, id uuid.UUID, to Status) error {
	if !to.IsTerminal() {
		return fmt.Errorf("invalid close status %q", to)
	}

	wo, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return err
	}

	if wo.Status.IsTerminal() {
		return ErrAlreadyClosed
	}

	return s.repo.CloseWorkOrder(ctx, id, to, time.Now().UTC())
}
