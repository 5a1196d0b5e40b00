package claim

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/history"
	"github.com/carvex/warranty/internal/workorder"
)

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=claim
type Repository interface {
	CreateClaim(ctx context.Context, c *Claim, entry *history.Entry) error
	GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error)
	ListClaims(ctx context.Context, filter ListFilter) ([]*Claim, error)

	// Begin opens a transaction holding the per-claim exclusive lock with
	// the claim row loaded under it. No other command on the same claim
	// can commit until this transaction finishes.
	Begin(ctx context.Context, claimID uuid.UUID) (Tx, error)
}

// Tx is a claim-scoped transaction. Claim, work order, and history writes
// staged on it commit atomically or not at all.
type Tx interface {
	Claim() *Claim

	HasOpenWorkOrder(ctx context.Context, t workorder.Type) (bool, error)

	// HasUnclosedWorkOrder reports whether any work order of the type is
	// still open or done. Only a closed order frees the slot for a new
	// one of the same type.
	HasUnclosedWorkOrder(ctx context.Context, t workorder.Type) (bool, error)

	OpenWorkOrder(ctx context.Context, t workorder.Type) (*workorder.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, wo *workorder.WorkOrder) error
	CloseWorkOrder(ctx context.Context, id uuid.UUID, status workorder.Status, endTime time.Time, laborHours float64) error

	UpdateClaim(ctx context.Context, c *Claim) error
	AppendHistory(ctx context.Context, e *history.Entry) error

	Commit() error
	Rollback() error
}

// Service is the claim lifecycle engine: the single authority for mutating
// Claim.Status. Every accepted command commits the new status together with
// exactly one history entry.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	Status     *Status
	RepairType *RepairType
}

// Result is the outcome of an accepted command.
type Result struct {
	Claim *Claim
	Entry *history.Entry
}

type CreateParams struct {
	ClaimNumber          string
	RepairType           RepairType
	AssignedTechnicianID *uuid.UUID
	CustomerConsent      bool
	MissingRequirements  []string

	// EstimatedRepairCost carries a dealer-side estimate in cents, when the
	// source system already has one.
	EstimatedRepairCost int64

	// ImmediateIntake skips the draft stage; requires an assigned
	// technician and customer consent.
	ImmediateIntake bool
}

// Create persists a new claim in draft (or open, for immediate intake)
// together with its initial ledger entry.
func (s *Service) Create(ctx context.Context, actor Actor, params CreateParams) (*Claim, error) {
	if params.ClaimNumber == "" {
		return nil, fmt.Errorf("claim number is required")
	}

	status := StatusDraft

	if params.ImmediateIntake {
		if params.AssignedTechnicianID == nil {
			return nil, guardViolation(CmdToIntake, StatusDraft, "no technician assigned")
		}

		if !params.CustomerConsent {
			return nil, guardViolation(CmdToIntake, StatusDraft, "customer consent not given")
		}

		status = StatusOpen
	}

	c := &Claim{
		ClaimNumber:           params.ClaimNumber,
		Status:                status,
		RepairType:            params.RepairType,
		AssignedTechnicianID:  params.AssignedTechnicianID,
		CustomerConsent:       params.CustomerConsent,
		MissingRequirements:   params.MissingRequirements,
		EstimatedRepairCost:   params.EstimatedRepairCost,
		CustomerPaymentStatus: PaymentPending,
		Version:               1,
	}

	entry := &history.Entry{
		StatusCode:  string(status),
		Note:        "claim created",
		ChangedByID: actor.ID,
	}

	if err := s.repo.CreateClaim(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetClaim(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Claim, error) {
	return s.repo.ListClaims(ctx, filter)
}

// Apply validates the command against the claim's current status and
// version, applies its side effects, and commits the new status plus one
// history entry atomically. Rejections carry the error taxonomy and leave
// the claim untouched.
func (s *Service) Apply(ctx context.Context, claimID uuid.UUID, actor Actor, expectedVersion int, cmd Command) (*Result, error) {
	spec, ok := transitions[cmd.Name()]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", cmd.Name())
	}

	tx, err := s.repo.Begin(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	c := tx.Claim()

	if expectedVersion != c.Version {
		return nil, staleState(cmd.Name(), c.Status, expectedVersion, c.Version)
	}

	if !slices.Contains(spec.from, c.Status) {
		return nil, invalidTransition(cmd.Name(), c.Status)
	}

	if spec.guard != nil {
		if err := spec.guard(ctx, tx, c, actor, cmd); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()

	var note string
	if spec.apply != nil {
		note, err = spec.apply(ctx, tx, c, actor, cmd, now)
		if err != nil {
			return nil, err
		}
	}

	c.Status = spec.to
	c.touch(now)

	entry := &history.Entry{
		ClaimID:     c.ID,
		StatusCode:  string(c.Status),
		Note:        note,
		ChangedByID: actor.ID,
		ChangedAt:   now,
	}

	if err := tx.UpdateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("updating claim: %w", err)
	}

	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transition: %w", err)
	}

	return &Result{Claim: c, Entry: entry}, nil
}
