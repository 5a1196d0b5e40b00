package claim

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("claim not found")

	// ErrInvalidTransition: the command is not defined for the claim's
	// current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrGuardViolation: the transition is defined but a precondition
	// failed (wrong actor role, missing assignment, open requirements,
	// no open work order).
	ErrGuardViolation = errors.New("guard violation")

	// ErrCounterExhausted: a capped counter would exceed its limit.
	ErrCounterExhausted = errors.New("counter exhausted")

	ErrDuplicateWorkOrder = errors.New("duplicate work order")

	// ErrStaleState: the caller's version no longer matches the committed
	// claim; the claim moved on since the caller last read it.
	ErrStaleState = errors.New("stale claim state")
)

// ErrCancelLimitExceeded specializes ErrCounterExhausted for the
// cancellation sub-flow; errors.Is matches both.
var ErrCancelLimitExceeded = fmt.Errorf("cancel request limit exceeded: %w", ErrCounterExhausted)

// TransitionError is the typed rejection returned for a refused command.
// It unwraps to one of the sentinel errors above.
type TransitionError struct {
	Err     error
	Command CommandName
	From    Status
	Reason  string
}

func (e *TransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: command %q in status %q", e.Err, e.Command, e.From)
	}
	return fmt.Sprintf("%s: command %q in status %q: %s", e.Err, e.Command, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func invalidTransition(cmd CommandName, from Status) error {
	return &TransitionError{Err: ErrInvalidTransition, Command: cmd, From: from}
}

func guardViolation(cmd CommandName, from Status, reason string) error {
	return &TransitionError{Err: ErrGuardViolation, Command: cmd, From: from, Reason: reason}
}

func counterExhausted(cmd CommandName, from Status, reason string) error {
	return &TransitionError{Err: ErrCounterExhausted, Command: cmd, From: from, Reason: reason}
}

func staleState(cmd CommandName, from Status, want, got int) error {
	return &TransitionError{
		Err:     ErrStaleState,
		Command: cmd,
		From:    from,
		Reason:  fmt.Sprintf("expected version %d, claim is at %d", want, got),
	}
}
