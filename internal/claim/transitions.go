package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carvex/warranty/internal/workorder"
)

// transition is one row of the lifecycle table: the statuses a command may
// fire from, the destination, a guard over preconditions, and the side
// effects applied before commit. The applier returns the note recorded in
// the history entry.
type transition struct {
	from  []Status
	to    Status
	guard func(ctx context.Context, tx Tx, c *Claim, actor Actor, cmd Command) error
	apply func(ctx context.Context, tx Tx, c *Claim, actor Actor, cmd Command, now time.Time) (string, error)
}

// workOrderTypeFor maps the claim's repair branch to its work order type.
func workOrderTypeFor(rt RepairType) (workorder.Type, bool) {
	switch rt {
	case RepairTypeEVM:
		return workorder.TypeEVM, true
	case RepairTypeSC:
		return workorder.TypeSC, true
	default:
		return "", false
	}
}

// setCost assigns a monotone cost field. Zero means "leave unchanged"; a
// value below the committed one is a guard violation, never a silent clamp.
func setCost(cmd CommandName, from Status, field *int64, v int64, name string) error {
	if v == 0 {
		return nil
	}

	if v < *field {
		return guardViolation(cmd, from, name+" cannot decrease")
	}

	*field = v

	return nil
}

var transitions = map[CommandName]transition{
	CmdToIntake: {
		from: []Status{StatusDraft},
		to:   StatusOpen,
		guard: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command) error {
			if c.AssignedTechnicianID == nil {
				return guardViolation(cmd.Name(), c.Status, "no technician assigned")
			}

			if !c.CustomerConsent {
				return guardViolation(cmd.Name(), c.Status, "customer consent not given")
			}

			return nil
		},
	},

	CmdSubmitDiagnostic: {
		from: []Status{StatusOpen},
		to:   StatusPendingApproval,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !c.IsAssignedTechnician(actor) {
				return guardViolation(cmd.Name(), c.Status, "actor is not the assigned technician")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(SubmitDiagnostic)
			c.DiagnosticSummary = q.Summary

			return "diagnostic submitted", nil
		},
	},

	CmdSubmitToEVM: {
		from: []Status{StatusPendingApproval},
		to:   StatusPendingEVMApproval,
		guard: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command) error {
			if c.HasMissingRequirements() {
				return guardViolation(cmd.Name(), c.Status,
					fmt.Sprintf("%d requirement(s) missing", len(c.MissingRequirements)))
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(SubmitToEVM)

			if err := setCost(cmd.Name(), c.Status, &c.EstimatedRepairCost, q.EstimatedRepairCost, "estimated repair cost"); err != nil {
				return "", err
			}

			if err := setCost(cmd.Name(), c.Status, &c.TotalEstimatedCost, q.TotalEstimatedCost, "total estimated cost"); err != nil {
				return "", err
			}

			return "submitted for EVM approval", nil
		},
	},

	CmdApprove: {
		from: []Status{StatusPendingEVMApproval},
		to:   StatusEVMApproved,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsEVM() {
				return guardViolation(cmd.Name(), c.Status, "actor is not EVM staff")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command, now time.Time) (string, error) {
			q := cmd.(Approve)

			// Approval identity is recorded once per claim lifetime, even
			// if the claim reopens and passes through approval again.
			if c.ApprovedByID == nil {
				id := actor.ID
				c.ApprovedByID = &id
				c.ApprovedAt = &now
			}

			if err := setCost(cmd.Name(), c.Status, &c.WarrantyCost, q.WarrantyCost, "warranty cost"); err != nil {
				return "", err
			}

			return "approved by EVM", nil
		},
	},

	CmdReject: {
		from: []Status{StatusPendingEVMApproval},
		to:   StatusEVMRejected,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsEVM() {
				return guardViolation(cmd.Name(), c.Status, "actor is not EVM staff")
			}

			if c.RejectionCount >= MaxRejections {
				return counterExhausted(cmd.Name(), c.Status, "rejection limit reached")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(Reject)
			c.RejectionCount++

			return "rejected by EVM: " + q.Reason, nil
		},
	},

	CmdCreateWorkOrder: {
		from: []Status{StatusEVMApproved, StatusPendingApproval},
		to:   StatusReadyForRepair,
		guard: func(ctx context.Context, tx Tx, c *Claim, _ Actor, cmd Command) error {
			q := cmd.(CreateWorkOrder)

			// The work order type must match the claim's branch and that
			// branch's entry status: EVM work orders open from EVM
			// approval, SC work orders from service-center approval.
			switch q.Type {
			case workorder.TypeEVM:
				if c.Status != StatusEVMApproved {
					return invalidTransition(cmd.Name(), c.Status)
				}

				if c.RepairType != RepairTypeEVM {
					return guardViolation(cmd.Name(), c.Status, "claim is not an EVM repair")
				}
			case workorder.TypeSC:
				if c.Status != StatusPendingApproval {
					return invalidTransition(cmd.Name(), c.Status)
				}

				if c.RepairType != RepairTypeSC {
					return guardViolation(cmd.Name(), c.Status, "claim is not an SC repair")
				}
			default:
				return guardViolation(cmd.Name(), c.Status, fmt.Sprintf("unknown work order type %q", q.Type))
			}

			// A done-but-not-closed order still occupies the slot.
			exists, err := tx.HasUnclosedWorkOrder(ctx, q.Type)
			if err != nil {
				return fmt.Errorf("checking work orders: %w", err)
			}

			if exists {
				return &TransitionError{Err: ErrDuplicateWorkOrder, Command: cmd.Name(), From: c.Status,
					Reason: fmt.Sprintf("a non-closed %s work order already exists", q.Type)}
			}

			return nil
		},
		apply: func(ctx context.Context, tx Tx, c *Claim, _ Actor, cmd Command, now time.Time) (string, error) {
			q := cmd.(CreateWorkOrder)

			technicianID := q.TechnicianID
			if technicianID == uuid.Nil && c.AssignedTechnicianID != nil {
				technicianID = *c.AssignedTechnicianID
			}

			wo := &workorder.WorkOrder{
				ClaimID:      c.ID,
				Type:         q.Type,
				Status:       workorder.StatusOpen,
				TechnicianID: technicianID,
				StartTime:    now,
			}

			if err := tx.CreateWorkOrder(ctx, wo); err != nil {
				return "", fmt.Errorf("creating work order: %w", err)
			}

			return fmt.Sprintf("%s work order opened", q.Type), nil
		},
	},

	CmdResubmit: {
		from: []Status{StatusEVMRejected},
		to:   StatusPendingEVMApproval,
		guard: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command) error {
			if c.ResubmitCount >= MaxResubmits {
				return counterExhausted(cmd.Name(), c.Status, "resubmission limit reached")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(Resubmit)
			c.ResubmitCount++

			note := "resubmitted for EVM approval"
			if q.Note != "" {
				note += ": " + q.Note
			}

			return note, nil
		},
	},

	CmdMoveToHandover: {
		from: []Status{StatusEVMRejected},
		to:   StatusHandoverPending,
		guard: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command) error {
			if c.RejectionCount < MaxRejections && c.ResubmitCount < MaxResubmits {
				return guardViolation(cmd.Name(), c.Status, "rejection and resubmission budgets not exhausted")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, _ *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(MoveToHandover)

			note := "finally rejected, moved to handover"
			if q.Note != "" {
				note += ": " + q.Note
			}

			return note, nil
		},
	},

	CmdReportProblem: {
		from: []Status{StatusReadyForRepair},
		to:   StatusProblemConflict,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !c.IsAssignedTechnician(actor) {
				return guardViolation(cmd.Name(), c.Status, "actor is not the assigned technician")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, _ *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(ReportProblem)

			return fmt.Sprintf("problem reported (%s): %s", q.ProblemType, q.Description), nil
		},
	},

	CmdResolveProblem: {
		from: []Status{StatusProblemConflict},
		to:   StatusProblemSolved,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsEVM() {
				return guardViolation(cmd.Name(), c.Status, "actor is not EVM staff")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, _ *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(ResolveProblem)

			return fmt.Sprintf("problem resolved (%s): %s", q.Action, q.Notes), nil
		},
	},

	CmdStartRepair: {
		from: []Status{StatusProblemSolved, StatusReadyForRepair, StatusWaitingForParts},
		to:   StatusRepairInProgress,
		guard: func(ctx context.Context, tx Tx, c *Claim, _ Actor, cmd Command) error {
			t, ok := workOrderTypeFor(c.RepairType)
			if !ok {
				return guardViolation(cmd.Name(), c.Status, "repair type not selected")
			}

			open, err := tx.HasOpenWorkOrder(ctx, t)
			if err != nil {
				return fmt.Errorf("checking open work orders: %w", err)
			}

			if !open {
				return guardViolation(cmd.Name(), c.Status, "no open work order")
			}

			return nil
		},
	},

	CmdAwaitParts: {
		from: []Status{StatusRepairInProgress, StatusReadyForRepair},
		to:   StatusWaitingForParts,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !c.IsAssignedTechnician(actor) {
				return guardViolation(cmd.Name(), c.Status, "actor is not the assigned technician")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, _ *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(AwaitParts)

			note := "waiting for parts"
			if q.Parts != "" {
				note += ": " + q.Parts
			}

			return note, nil
		},
	},

	CmdRequirePayment: {
		from: []Status{StatusReadyForRepair},
		to:   StatusCustomerPaymentPending,
		guard: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command) error {
			if c.RepairType != RepairTypeSC {
				return guardViolation(cmd.Name(), c.Status, "customer payment applies to SC repairs only")
			}

			return nil
		},
	},

	CmdConfirmPayment: {
		from: []Status{StatusCustomerPaymentPending},
		to:   StatusCustomerPaid,
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, _ Command, _ time.Time) (string, error) {
			c.CustomerPaymentStatus = PaymentPaid

			return "customer payment confirmed", nil
		},
	},

	CmdMarkWorkDone: {
		from: []Status{StatusRepairInProgress, StatusCustomerPaid, StatusReadyForRepair},
		to:   StatusWorkDone,
		guard: func(ctx context.Context, tx Tx, c *Claim, actor Actor, cmd Command) error {
			t, ok := workOrderTypeFor(c.RepairType)
			if !ok {
				return guardViolation(cmd.Name(), c.Status, "repair type not selected")
			}

			wo, err := tx.OpenWorkOrder(ctx, t)
			if err != nil {
				if errors.Is(err, workorder.ErrNotFound) {
					return guardViolation(cmd.Name(), c.Status, "no open work order")
				}

				return fmt.Errorf("loading open work order: %w", err)
			}

			if wo.TechnicianID != actor.ID {
				return guardViolation(cmd.Name(), c.Status, "open work order is owned by another technician")
			}

			return nil
		},
		apply: func(ctx context.Context, tx Tx, c *Claim, actor Actor, cmd Command, now time.Time) (string, error) {
			q := cmd.(MarkWorkDone)

			t, _ := workOrderTypeFor(c.RepairType)

			wo, err := tx.OpenWorkOrder(ctx, t)
			if err != nil {
				return "", fmt.Errorf("loading open work order: %w", err)
			}

			// Close outright rather than leaving the order done: a done
			// order would still block a new one of the same type after a
			// reopen.
			if err := tx.CloseWorkOrder(ctx, wo.ID, workorder.StatusClosed, now, q.LaborHours); err != nil {
				return "", fmt.Errorf("closing work order: %w", err)
			}

			note := "work done"
			if q.Notes != "" {
				note += ": " + q.Notes
			}

			return note, nil
		},
	},

	CmdPrepareHandover: {
		from: []Status{StatusWorkDone},
		to:   StatusReadyForHandover,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsStaff() {
				return guardViolation(cmd.Name(), c.Status, "actor is not staff")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, _ *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(PrepareHandover)

			note := "staged for handover"
			if q.Note != "" {
				note += ": " + q.Note
			}

			return note, nil
		},
	},

	CmdCompleteClaim: {
		from: []Status{StatusWorkDone, StatusReadyForHandover, StatusHandoverPending, StatusCanceledReadyToHandover},
		to:   StatusClaimDone,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsStaff() {
				return guardViolation(cmd.Name(), c.Status, "actor is not staff")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(CompleteClaim)

			if err := setCost(cmd.Name(), c.Status, &c.CompanyPaidCost, q.CompanyPaidCost, "company paid cost"); err != nil {
				return "", err
			}

			note := "claim completed, vehicle handed over"
			if q.Notes != "" {
				note += ": " + q.Notes
			}

			return note, nil
		},
	},

	CmdReopen: {
		from: []Status{StatusReadyForHandover, StatusHandoverPending},
		to:   StatusOpen,
		guard: func(_ context.Context, _ Tx, c *Claim, actor Actor, cmd Command) error {
			if !actor.IsStaff() {
				return guardViolation(cmd.Name(), c.Status, "actor is not staff")
			}

			return nil
		},
		apply: func(_ context.Context, _ Tx, c *Claim, _ Actor, cmd Command, _ time.Time) (string, error) {
			q := cmd.(Reopen)

			c.PendingCancelReason = ""

			note := "claim reopened"
			if q.Reason != "" {
				note += ": " + q.Reason
			}

			return note, nil
		},
	},
}
