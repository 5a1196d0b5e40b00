package claim

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Counter caps. Attempts beyond a cap are rejected, never clamped.
const (
	MaxRejections     = 2
	MaxResubmits      = 1
	MaxCancelRequests = 2
)

// Claim is the aggregate root of a warranty repair request. It is mutated
// only through commands applied by the lifecycle engine (and the
// cancellation sub-flow), both operating under the same per-claim
// exclusivity. Version is the optimistic concurrency token: every committed
// mutation increments it.
type Claim struct {
	ID          uuid.UUID
	ClaimNumber string
	Status      Status
	RepairType  RepairType

	AssignedTechnicianID *uuid.UUID
	CustomerConsent      bool
	DiagnosticSummary    string

	ApprovedByID *uuid.UUID
	ApprovedAt   *time.Time

	// Costs in cents. Once set they never decrease.
	EstimatedRepairCost int64
	WarrantyCost        int64
	CompanyPaidCost     int64
	TotalEstimatedCost  int64

	RejectionCount     int
	ResubmitCount      int
	CancelRequestCount int

	MissingRequirements []string

	// A pending cancel request is the reason plus who asked. Both are set
	// together and cleared together when the request is resolved.
	PendingCancelReason      string
	PendingCancelRequesterID *uuid.UUID

	CustomerPaymentStatus PaymentStatus

	Version   int
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HasMissingRequirements reports whether submission to EVM is blocked.
func (c *Claim) HasMissingRequirements() bool {
	return len(c.MissingRequirements) > 0
}

// ResolveRequirement removes a named requirement from the missing set.
func (c *Claim) ResolveRequirement(name string) {
	c.MissingRequirements = slices.DeleteFunc(c.MissingRequirements, func(r string) bool {
		return r == name
	})
}

// HasPendingCancelRequest reports whether a cancel request awaits resolution.
func (c *Claim) HasPendingCancelRequest() bool {
	return c.PendingCancelReason != ""
}

// IsAssignedTechnician reports whether the actor is the technician assigned
// to this claim.
func (c *Claim) IsAssignedTechnician(a Actor) bool {
	if c.AssignedTechnicianID == nil {
		return false
	}
	return a.Role == RoleSCTechnician && *c.AssignedTechnicianID == a.ID
}

func (c *Claim) touch(now time.Time) {
	c.Version++
	c.UpdatedAt = &now
}
