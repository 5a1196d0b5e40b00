package claim

import (
	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/workorder"
)

// CommandName identifies a lifecycle transition request.
type CommandName string

const (
	CmdToIntake         CommandName = "to_intake"
	CmdSubmitDiagnostic CommandName = "submit_diagnostic"
	CmdSubmitToEVM      CommandName = "submit_to_evm"
	CmdApprove          CommandName = "approve"
	CmdReject           CommandName = "reject"
	CmdCreateWorkOrder  CommandName = "create_work_order"
	CmdResubmit         CommandName = "resubmit"
	CmdMoveToHandover   CommandName = "move_to_handover"
	CmdReportProblem    CommandName = "report_problem"
	CmdResolveProblem   CommandName = "resolve_problem"
	CmdStartRepair      CommandName = "start_repair"
	CmdAwaitParts       CommandName = "await_parts"
	CmdRequirePayment   CommandName = "require_payment"
	CmdConfirmPayment   CommandName = "confirm_payment"
	CmdMarkWorkDone     CommandName = "mark_work_done"
	CmdPrepareHandover  CommandName = "prepare_handover"
	CmdCompleteClaim    CommandName = "complete_claim"
	CmdReopen           CommandName = "reopen"
)

// Command is a discriminated transition request. Each implementation carries
// only the fields its transition needs; payloads are validated before the
// guard runs.
type Command interface {
	Name() CommandName
}

// ToIntake moves a drafted claim into the active lifecycle.
type ToIntake struct{}

func (ToIntake) Name() CommandName { return CmdToIntake }

// SubmitDiagnostic records the assigned technician's findings.
type SubmitDiagnostic struct {
	Summary string
}

func (SubmitDiagnostic) Name() CommandName { return CmdSubmitDiagnostic }

// SubmitToEVM sends the claim to the OEM approval authority, snapshotting
// the estimated cost supplied by the cost provider.
type SubmitToEVM struct {
	EstimatedRepairCost int64
	TotalEstimatedCost  int64
}

func (SubmitToEVM) Name() CommandName { return CmdSubmitToEVM }

// Approve is the EVM approval decision.
type Approve struct {
	WarrantyCost int64
}

func (Approve) Name() CommandName { return CmdApprove }

// Reject is the EVM rejection decision.
type Reject struct {
	Reason string
}

func (Reject) Name() CommandName { return CmdReject }

// CreateWorkOrder opens a work order of the given type for the claim's
// assigned technician.
type CreateWorkOrder struct {
	Type         workorder.Type
	TechnicianID uuid.UUID
}

func (CreateWorkOrder) Name() CommandName { return CmdCreateWorkOrder }

// Resubmit sends a rejected claim back to EVM approval. Capped at one per
// claim lifetime.
type Resubmit struct {
	Note string
}

func (Resubmit) Name() CommandName { return CmdResubmit }

// MoveToHandover routes a finally-rejected claim to handover.
type MoveToHandover struct {
	Note string
}

func (MoveToHandover) Name() CommandName { return CmdMoveToHandover }

// ReportProblem flags a conflict discovered during repair preparation.
type ReportProblem struct {
	ProblemType string
	Description string
}

func (ReportProblem) Name() CommandName { return CmdReportProblem }

// ResolveProblem is the EVM-side resolution of a reported conflict.
type ResolveProblem struct {
	Action string
	Notes  string
}

func (ResolveProblem) Name() CommandName { return CmdResolveProblem }

// StartRepair begins work against the open work order.
type StartRepair struct{}

func (StartRepair) Name() CommandName { return CmdStartRepair }

// AwaitParts parks the repair until ordered parts arrive.
type AwaitParts struct {
	Parts string
}

func (AwaitParts) Name() CommandName { return CmdAwaitParts }

// RequirePayment routes an SC repair through the customer payment leg.
type RequirePayment struct{}

func (RequirePayment) Name() CommandName { return CmdRequirePayment }

// ConfirmPayment records the customer payment.
type ConfirmPayment struct{}

func (ConfirmPayment) Name() CommandName { return CmdConfirmPayment }

// MarkWorkDone closes the actor's open work order and records the outcome.
type MarkWorkDone struct {
	Notes      string
	LaborHours float64
}

func (MarkWorkDone) Name() CommandName { return CmdMarkWorkDone }

// PrepareHandover stages a finished claim for the physical handover.
type PrepareHandover struct {
	Note string
}

func (PrepareHandover) Name() CommandName { return CmdPrepareHandover }

// CompleteClaim ends the claim's active lifecycle at handover, finalizing
// the company-paid cost.
type CompleteClaim struct {
	Notes           string
	CompanyPaidCost int64
}

func (CompleteClaim) Name() CommandName { return CmdCompleteClaim }

// Reopen returns a staged claim to the open state.
type Reopen struct {
	Reason string
}

func (Reopen) Name() CommandName { return CmdReopen }
