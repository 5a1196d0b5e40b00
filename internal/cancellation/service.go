// Package cancellation implements the counter-bounded cancel sub-flow:
// request → approve/reject, or a staff-only direct cancel. It runs only
// while the claim is active and shares the claim store's per-claim
// exclusivity with the lifecycle engine.
package cancellation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/history"
)

// Decision resolves a pending cancel request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Sub-flow command names, reported in rejection errors.
const (
	CmdRequestCancel claim.CommandName = "request_cancel"
	CmdResolveCancel claim.CommandName = "resolve_cancel"
	CmdCancelDirect  claim.CommandName = "cancel_direct"
)

type Service struct {
	repo claim.Repository
}

func NewService(repo claim.Repository) *Service {
	return &Service{repo: repo}
}

// Request records a cancel request on the claim without changing its
// status. Capped at two per claim; exceeding the cap is rejected, the
// counter stays unchanged, and the request never escalates to a direct
// cancel.
func (s *Service) Request(ctx context.Context, claimID uuid.UUID, actor claim.Actor, expectedVersion int, reason string) (*claim.Claim, error) {
	if reason == "" {
		return nil, fmt.Errorf("cancel reason is required")
	}

	tx, err := s.repo.Begin(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	c := tx.Claim()

	if err := s.checkActive(CmdRequestCancel, c, expectedVersion); err != nil {
		return nil, err
	}

	if c.HasPendingCancelRequest() {
		return nil, &claim.TransitionError{Err: claim.ErrGuardViolation, Command: CmdRequestCancel,
			From: c.Status, Reason: "a cancel request is already pending"}
	}

	if c.CancelRequestCount >= claim.MaxCancelRequests {
		return nil, &claim.TransitionError{Err: claim.ErrCancelLimitExceeded, Command: CmdRequestCancel,
			From: c.Status, Reason: "cancel request limit reached"}
	}

	requester := actor.ID
	c.CancelRequestCount++
	c.PendingCancelReason = reason
	c.PendingCancelRequesterID = &requester
	bumpVersion(c)

	// No status change, so no ledger entry: the ledger records status
	// transitions only.
	if err := tx.UpdateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("updating claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancel request: %w", err)
	}

	return c, nil
}

// Resolve consumes the pending cancel request. Approval moves the claim to
// the cancelled-awaiting-handover status; rejection clears the request and
// leaves the status unchanged.
func (s *Service) Resolve(ctx context.Context, claimID uuid.UUID, actor claim.Actor, expectedVersion int, decision Decision, note string) (*claim.Result, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	tx, err := s.repo.Begin(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	c := tx.Claim()

	if err := s.checkActive(CmdResolveCancel, c, expectedVersion); err != nil {
		return nil, err
	}

	if !actor.IsStaff() {
		return nil, &claim.TransitionError{Err: claim.ErrGuardViolation, Command: CmdResolveCancel,
			From: c.Status, Reason: "actor is not staff"}
	}

	if !c.HasPendingCancelRequest() {
		return nil, &claim.TransitionError{Err: claim.ErrGuardViolation, Command: CmdResolveCancel,
			From: c.Status, Reason: "no pending cancel request"}
	}

	reason := c.PendingCancelReason
	requester := c.PendingCancelRequesterID
	c.PendingCancelReason = ""
	c.PendingCancelRequesterID = nil
	now := bumpVersion(c)

	var entry *history.Entry

	if decision == DecisionApprove {
		c.Status = claim.StatusCanceledReadyToHandover

		entryNote := "cancel request approved: " + reason
		if requester != nil {
			entryNote += ", requested by " + requester.String()
		}

		if note != "" {
			entryNote += " (" + note + ")"
		}

		entry = &history.Entry{
			ClaimID:     c.ID,
			StatusCode:  string(c.Status),
			Note:        entryNote,
			ChangedByID: actor.ID,
			ChangedAt:   now,
		}
	}

	if err := tx.UpdateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("updating claim: %w", err)
	}

	if entry != nil {
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return nil, fmt.Errorf("appending history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancel resolution: %w", err)
	}

	return &claim.Result{Claim: c, Entry: entry}, nil
}

// CancelDirect cancels the claim immediately, bypassing the
// request/approve round trip. Staff only; does not consume the cancel
// request budget.
func (s *Service) CancelDirect(ctx context.Context, claimID uuid.UUID, actor claim.Actor, expectedVersion int, reason string) (*claim.Result, error) {
	tx, err := s.repo.Begin(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	c := tx.Claim()

	if err := s.checkActive(CmdCancelDirect, c, expectedVersion); err != nil {
		return nil, err
	}

	if !actor.IsStaff() {
		return nil, &claim.TransitionError{Err: claim.ErrGuardViolation, Command: CmdCancelDirect,
			From: c.Status, Reason: "actor is not staff"}
	}

	c.PendingCancelReason = ""
	c.PendingCancelRequesterID = nil
	c.Status = claim.StatusCanceledReadyToHandover
	now := bumpVersion(c)

	entry := &history.Entry{
		ClaimID:     c.ID,
		StatusCode:  string(c.Status),
		Note:        "cancelled by staff: " + reason,
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
		return nil, fmt.Errorf("committing cancel: %w", err)
	}

	return &claim.Result{Claim: c, Entry: entry}, nil
}

func (s *Service) checkActive(cmd claim.CommandName, c *claim.Claim, expectedVersion int) error {
	if expectedVersion != c.Version {
		return &claim.TransitionError{Err: claim.ErrStaleState, Command: cmd, From: c.Status,
			Reason: fmt.Sprintf("expected version %d, claim is at %d", expectedVersion, c.Version)}
	}

	if !c.Status.IsActive() {
		return &claim.TransitionError{Err: claim.ErrInvalidTransition, Command: cmd, From: c.Status}
	}

	return nil
}

func bumpVersion(c *claim.Claim) time.Time {
	now := time.Now().UTC()
	c.Version++
	c.UpdatedAt = &now

	return now
}
