package claim

import "github.com/google/uuid"

// Status represents the lifecycle state of a claim.
type Status string

const (
	StatusDraft                   Status = "draft"
	StatusOpen                    Status = "open"
	StatusPendingApproval         Status = "pending_approval"
	StatusPendingEVMApproval      Status = "pending_evm_approval"
	StatusEVMApproved             Status = "evm_approved"
	StatusReadyForRepair          Status = "ready_for_repair"
	StatusProblemConflict         Status = "problem_conflict"
	StatusProblemSolved           Status = "problem_solved"
	StatusWaitingForParts         Status = "waiting_for_parts"
	StatusRepairInProgress        Status = "repair_in_progress"
	StatusEVMRejected             Status = "evm_rejected"
	StatusCustomerPaymentPending  Status = "customer_payment_pending"
	StatusCustomerPaid            Status = "customer_paid"
	StatusWorkDone                Status = "work_done"
	StatusReadyForHandover        Status = "ready_for_handover"
	StatusHandoverPending         Status = "handover_pending"
	StatusClaimDone               Status = "claim_done"
	StatusCanceledReadyToHandover Status = "canceled_ready_to_handover"
)

var allStatuses = map[Status]struct{}{
	StatusDraft:                   {},
	StatusOpen:                    {},
	StatusPendingApproval:         {},
	StatusPendingEVMApproval:      {},
	StatusEVMApproved:             {},
	StatusReadyForRepair:          {},
	StatusProblemConflict:         {},
	StatusProblemSolved:           {},
	StatusWaitingForParts:         {},
	StatusRepairInProgress:        {},
	StatusEVMRejected:             {},
	StatusCustomerPaymentPending:  {},
	StatusCustomerPaid:            {},
	StatusWorkDone:                {},
	StatusReadyForHandover:        {},
	StatusHandoverPending:         {},
	StatusClaimDone:               {},
	StatusCanceledReadyToHandover: {},
}

// Valid returns true if the status is a member of the defined state set.
func (s Status) Valid() bool {
	_, ok := allStatuses[s]
	return ok
}

// IsTerminal returns true for statuses with no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusClaimDone
}

// IsCanceled returns true once the claim has left the main lifecycle through
// the cancellation sub-flow. The claim still awaits a physical handover.
func (s Status) IsCanceled() bool {
	return s == StatusCanceledReadyToHandover
}

// IsActive reports whether the claim is still inside the main lifecycle:
// not done and not cancelled. The cancellation sub-flow may only run while
// the claim is active.
func (s Status) IsActive() bool {
	return s.Valid() && !s.IsTerminal() && !s.IsCanceled()
}

// RepairType selects which branch of the lifecycle applies downstream.
// It is chosen once, early in the flow, and never changed afterward.
type RepairType string

const (
	RepairTypeUnset RepairType = ""
	RepairTypeEVM   RepairType = "evm_repair"
	RepairTypeSC    RepairType = "sc_repair"
)

// PaymentStatus tracks the customer payment leg of SC repairs.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Role identifies the kind of actor issuing a command.
type Role string

const (
	RoleSCStaff      Role = "sc_staff"
	RoleSCTechnician Role = "sc_technician"
	RoleEVMStaff     Role = "evm_staff"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSCStaff, RoleSCTechnician, RoleEVMStaff, RoleAdmin:
		return true
	}

	return false
}

// Actor is the authenticated identity behind a command.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsStaff returns true for service-center staff and admins.
func (a Actor) IsStaff() bool {
	return a.Role == RoleSCStaff || a.Role == RoleAdmin
}

// IsEVM returns true for the OEM approval authority.
func (a Actor) IsEVM() bool {
	return a.Role == RoleEVMStaff || a.Role == RoleAdmin
}
