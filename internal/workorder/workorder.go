package workorder

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type distinguishes warranty (EVM-funded) from service-center-funded work.
type Type string

const (
	TypeEVM Type = "evm"
	TypeSC  Type = "sc"
)

// Status is the lifecycle state of a single work order. Done and Closed are
// terminal: a finished work order is never reopened, a new one is created
// instead.
type Status string

const (
	StatusOpen   Status = "open"
	StatusDone   Status = "done"
	StatusClosed Status = "closed"
)

// IsTerminal returns true once the work order can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusClosed
}

var (
	ErrNotFound = errors.New("work order not found")

	// ErrAlreadyClosed: attempt to close a work order that is already in
	// a terminal status.
	ErrAlreadyClosed = errors.New("work order already closed")
)

// WorkOrder is a unit of scheduled repair labor tied to a claim and a
// technician. A claim holds at most one non-terminal work order per type.
type WorkOrder struct {
	ID           uuid.UUID
	ClaimID      uuid.UUID
	Type         Type
	Status       Status
	TechnicianID uuid.UUID
	LaborHours   float64
	StartTime    time.Time
	EndTime      *time.Time
	CreatedAt    time.Time
}
