package claim_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carvex/warranty/internal/claim"
	"github.com/carvex/warranty/internal/workorder"
)

var (
	technicianID = uuid.New()
	evmStaffID   = uuid.New()
	staffID      = uuid.New()

	technician = claim.Actor{ID: technicianID, Role: claim.RoleSCTechnician}
	evmStaff   = claim.Actor{ID: evmStaffID, Role: claim.RoleEVMStaff}
	staff      = claim.Actor{ID: staffID, Role: claim.RoleSCStaff}
)

func newClaim(status claim.Status, mut ...func(*claim.Claim)) *claim.Claim {
	techID := technicianID
	c := &claim.Claim{
		ID:                   uuid.New(),
		ClaimNumber:          "WC-2026-0042",
		Status:               status,
		RepairType:           claim.RepairTypeEVM,
		AssignedTechnicianID: &techID,
		CustomerConsent:      true,
		Version:              3,
		CreatedAt:            time.Now(),
	}

	for _, m := range mut {
		m(c)
	}

	return c
}

// newEngine wires a service whose repository hands out tx for c's ID.
func newEngine(t *testing.T, c *claim.Claim) (*claim.Service, *claim.MockTx) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := claim.NewMockRepository(ctrl)
	tx := claim.NewMockTx(ctrl)

	repo.EXPECT().Begin(gomock.Any(), c.ID).Return(tx, nil)
	tx.EXPECT().Claim().Return(c)
	tx.EXPECT().Rollback().Return(nil).AnyTimes()

	return claim.NewService(repo), tx
}

func expectCommit(tx *claim.MockTx) {
	tx.EXPECT().UpdateClaim(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().AppendHistory(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)
}

func TestApply_Reject(t *testing.T) {
	c := newClaim(claim.StatusPendingEVMApproval)
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, evmStaff, 3, claim.Reject{Reason: "bad diagnosis"})
	require.NoError(t, err)

	assert.Equal(t, claim.StatusEVMRejected, res.Claim.Status)
	assert.Equal(t, 1, res.Claim.RejectionCount)
	assert.Equal(t, 4, res.Claim.Version)
	assert.Equal(t, string(claim.StatusEVMRejected), res.Entry.StatusCode)
	assert.Contains(t, res.Entry.Note, "bad diagnosis")
}

func TestApply_RejectRequiresEVMRole(t *testing.T) {
	c := newClaim(claim.StatusPendingEVMApproval)
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.Reject{Reason: "nope"})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
	assert.Equal(t, 0, c.RejectionCount)
}

func TestApply_Resubmit(t *testing.T) {
	c := newClaim(claim.StatusEVMRejected, func(c *claim.Claim) {
		c.RejectionCount = 1
	})
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.Resubmit{Note: "added photos"})
	require.NoError(t, err)

	assert.Equal(t, claim.StatusPendingEVMApproval, res.Claim.Status)
	assert.Equal(t, 1, res.Claim.ResubmitCount)
}

func TestApply_ResubmitExhausted(t *testing.T) {
	c := newClaim(claim.StatusEVMRejected, func(c *claim.Claim) {
		c.RejectionCount = 1
		c.ResubmitCount = 1
	})
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.Resubmit{})
	assert.ErrorIs(t, err, claim.ErrCounterExhausted)
	assert.Equal(t, 1, c.ResubmitCount)
	assert.Equal(t, claim.StatusEVMRejected, c.Status)
}

func TestApply_MoveToHandover(t *testing.T) {
	c := newClaim(claim.StatusEVMRejected, func(c *claim.Claim) {
		c.RejectionCount = 2
	})
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.MoveToHandover{})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusHandoverPending, res.Claim.Status)
}

func TestApply_MoveToHandoverNotExhausted(t *testing.T) {
	c := newClaim(claim.StatusEVMRejected, func(c *claim.Claim) {
		c.RejectionCount = 1
	})
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.MoveToHandover{})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_MoveToHandoverWrongStatus(t *testing.T) {
	c := newClaim(claim.StatusPendingApproval)
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.MoveToHandover{})
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}

func TestApply_CreateWorkOrder(t *testing.T) {
	c := newClaim(claim.StatusEVMApproved)
	svc, tx := newEngine(t, c)

	tx.EXPECT().HasUnclosedWorkOrder(gomock.Any(), workorder.TypeEVM).Return(false, nil)
	tx.EXPECT().
		CreateWorkOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, wo *workorder.WorkOrder) error {
			assert.Equal(t, c.ID, wo.ClaimID)
			assert.Equal(t, workorder.TypeEVM, wo.Type)
			assert.Equal(t, workorder.StatusOpen, wo.Status)
			assert.Equal(t, technicianID, wo.TechnicianID)
			wo.ID = uuid.New()
			return nil
		})
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CreateWorkOrder{Type: workorder.TypeEVM})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusReadyForRepair, res.Claim.Status)
}

func TestApply_CreateWorkOrderDuplicate(t *testing.T) {
	c := newClaim(claim.StatusEVMApproved)
	svc, tx := newEngine(t, c)

	tx.EXPECT().HasUnclosedWorkOrder(gomock.Any(), workorder.TypeEVM).Return(true, nil)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CreateWorkOrder{Type: workorder.TypeEVM})
	assert.ErrorIs(t, err, claim.ErrDuplicateWorkOrder)
}

func TestApply_CreateWorkOrderDoneOrderStillBlocks(t *testing.T) {
	// A reopened claim back at EVM approval may still hold a done order
	// from the previous cycle. Done is not closed: the slot stays taken.
	c := newClaim(claim.StatusEVMApproved, func(c *claim.Claim) {
		c.ApprovedByID = &evmStaffID
	})
	svc, tx := newEngine(t, c)

	tx.EXPECT().HasUnclosedWorkOrder(gomock.Any(), workorder.TypeEVM).Return(true, nil)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CreateWorkOrder{Type: workorder.TypeEVM})
	assert.ErrorIs(t, err, claim.ErrDuplicateWorkOrder)
}

func TestApply_CreateWorkOrderRepairTypeMismatch(t *testing.T) {
	// Right status for an EVM order, but the claim's branch says SC: a
	// guard failure, not a sequencing one.
	c := newClaim(claim.StatusEVMApproved, func(c *claim.Claim) {
		c.RepairType = claim.RepairTypeSC
	})
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CreateWorkOrder{Type: workorder.TypeEVM})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_CreateWorkOrderWrongBranch(t *testing.T) {
	// An SC work order cannot open from EVM approval.
	c := newClaim(claim.StatusEVMApproved)
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CreateWorkOrder{Type: workorder.TypeSC})
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}

func TestApply_StaleVersion(t *testing.T) {
	c := newClaim(claim.StatusEVMRejected)
	svc, _ := newEngine(t, c)

	// The caller read version 2; the claim has moved to 3 since. This is
	// also how a replayed command is rejected after a successful commit.
	_, err := svc.Apply(context.Background(), c.ID, staff, 2, claim.Resubmit{})
	assert.ErrorIs(t, err, claim.ErrStaleState)
	assert.Equal(t, 0, c.ResubmitCount)
}

func TestApply_ApproveSetsApprovalOnce(t *testing.T) {
	c := newClaim(claim.StatusPendingEVMApproval)
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, evmStaff, 3, claim.Approve{WarrantyCost: 120_00})
	require.NoError(t, err)

	require.NotNil(t, res.Claim.ApprovedByID)
	assert.Equal(t, evmStaffID, *res.Claim.ApprovedByID)
	require.NotNil(t, res.Claim.ApprovedAt)
	assert.Equal(t, int64(120_00), res.Claim.WarrantyCost)

	firstApprover := *res.Claim.ApprovedByID
	firstAt := *res.Claim.ApprovedAt

	// The claim later reopens and passes through EVM approval again; the
	// original approval identity must survive.
	c2 := newClaim(claim.StatusPendingEVMApproval, func(c *claim.Claim) {
		c.ApprovedByID = &firstApprover
		c.ApprovedAt = &firstAt
		c.WarrantyCost = 120_00
	})
	otherEVM := claim.Actor{ID: uuid.New(), Role: claim.RoleEVMStaff}

	svc2, tx2 := newEngine(t, c2)
	expectCommit(tx2)

	res2, err := svc2.Apply(context.Background(), c2.ID, otherEVM, 3, claim.Approve{})
	require.NoError(t, err)
	assert.Equal(t, firstApprover, *res2.Claim.ApprovedByID)
	assert.Equal(t, firstAt, *res2.Claim.ApprovedAt)
}

func TestApply_SubmitToEVMBlockedByRequirements(t *testing.T) {
	c := newClaim(claim.StatusPendingApproval, func(c *claim.Claim) {
		c.MissingRequirements = []string{"service booklet scan"}
	})
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.SubmitToEVM{})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_SubmitToEVMSnapshotsCost(t *testing.T) {
	c := newClaim(claim.StatusPendingApproval)
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.SubmitToEVM{
		EstimatedRepairCost: 450_00,
		TotalEstimatedCost:  520_00,
	})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusPendingEVMApproval, res.Claim.Status)
	assert.Equal(t, int64(450_00), res.Claim.EstimatedRepairCost)
	assert.Equal(t, int64(520_00), res.Claim.TotalEstimatedCost)
}

func TestApply_CostNeverDecreases(t *testing.T) {
	c := newClaim(claim.StatusPendingApproval, func(c *claim.Claim) {
		c.EstimatedRepairCost = 450_00
	})
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.SubmitToEVM{EstimatedRepairCost: 300_00})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
	assert.Equal(t, int64(450_00), c.EstimatedRepairCost)
}

func TestApply_SubmitDiagnosticWrongTechnician(t *testing.T) {
	c := newClaim(claim.StatusOpen)
	svc, _ := newEngine(t, c)

	other := claim.Actor{ID: uuid.New(), Role: claim.RoleSCTechnician}

	_, err := svc.Apply(context.Background(), c.ID, other, 3, claim.SubmitDiagnostic{Summary: "battery fault"})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_StartRepairNeedsOpenWorkOrder(t *testing.T) {
	c := newClaim(claim.StatusReadyForRepair)
	svc, tx := newEngine(t, c)

	tx.EXPECT().HasOpenWorkOrder(gomock.Any(), workorder.TypeEVM).Return(false, nil)

	_, err := svc.Apply(context.Background(), c.ID, technician, 3, claim.StartRepair{})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_MarkWorkDoneOwnership(t *testing.T) {
	c := newClaim(claim.StatusRepairInProgress)
	svc, tx := newEngine(t, c)

	wo := &workorder.WorkOrder{
		ID:           uuid.New(),
		ClaimID:      c.ID,
		Type:         workorder.TypeEVM,
		Status:       workorder.StatusOpen,
		TechnicianID: uuid.New(), // someone else's work order
	}
	tx.EXPECT().OpenWorkOrder(gomock.Any(), workorder.TypeEVM).Return(wo, nil)

	_, err := svc.Apply(context.Background(), c.ID, technician, 3, claim.MarkWorkDone{})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_MarkWorkDoneClosesWorkOrder(t *testing.T) {
	c := newClaim(claim.StatusRepairInProgress)
	svc, tx := newEngine(t, c)

	wo := &workorder.WorkOrder{
		ID:           uuid.New(),
		ClaimID:      c.ID,
		Type:         workorder.TypeEVM,
		Status:       workorder.StatusOpen,
		TechnicianID: technicianID,
	}
	tx.EXPECT().OpenWorkOrder(gomock.Any(), workorder.TypeEVM).Return(wo, nil).Times(2)
	tx.EXPECT().CloseWorkOrder(gomock.Any(), wo.ID, workorder.StatusClosed, gomock.Any(), 3.5).Return(nil)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, technician, 3, claim.MarkWorkDone{Notes: "pack replaced", LaborHours: 3.5})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusWorkDone, res.Claim.Status)
}

func TestApply_RequirePaymentSCOnly(t *testing.T) {
	c := newClaim(claim.StatusReadyForRepair) // EVM branch
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.RequirePayment{})
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestApply_ConfirmPayment(t *testing.T) {
	c := newClaim(claim.StatusCustomerPaymentPending, func(c *claim.Claim) {
		c.RepairType = claim.RepairTypeSC
	})
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.ConfirmPayment{})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusCustomerPaid, res.Claim.Status)
	assert.Equal(t, claim.PaymentPaid, res.Claim.CustomerPaymentStatus)
}

func TestApply_CompleteFromCanceled(t *testing.T) {
	c := newClaim(claim.StatusCanceledReadyToHandover)
	svc, tx := newEngine(t, c)
	expectCommit(tx)

	res, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CompleteClaim{Notes: "vehicle collected"})
	require.NoError(t, err)
	assert.Equal(t, claim.StatusClaimDone, res.Claim.Status)
}

func TestApply_InvalidCommandForStatus(t *testing.T) {
	c := newClaim(claim.StatusOpen)
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.CompleteClaim{})
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}

func TestApply_TerminalHasNoTransitions(t *testing.T) {
	c := newClaim(claim.StatusClaimDone)
	svc, _ := newEngine(t, c)

	_, err := svc.Apply(context.Background(), c.ID, staff, 3, claim.Reopen{})
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}

func TestCreate(t *testing.T) {
	type testCase struct {
		name       string
		params     claim.CreateParams
		wantStatus claim.Status
		wantErr    error
	}

	techID := technicianID

	tests := []testCase{
		{
			name:       "Draft",
			params:     claim.CreateParams{ClaimNumber: "WC-2026-0001"},
			wantStatus: claim.StatusDraft,
		},
		{
			name: "ImmediateIntake",
			params: claim.CreateParams{
				ClaimNumber:          "WC-2026-0002",
				AssignedTechnicianID: &techID,
				CustomerConsent:      true,
				ImmediateIntake:      true,
			},
			wantStatus: claim.StatusOpen,
		},
		{
			name: "ImmediateIntakeWithoutTechnician",
			params: claim.CreateParams{
				ClaimNumber:     "WC-2026-0003",
				CustomerConsent: true,
				ImmediateIntake: true,
			},
			wantErr: claim.ErrGuardViolation,
		},
		{
			name: "ImmediateIntakeWithoutConsent",
			params: claim.CreateParams{
				ClaimNumber:          "WC-2026-0004",
				AssignedTechnicianID: &techID,
				ImmediateIntake:      true,
			},
			wantErr: claim.ErrGuardViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := claim.NewMockRepository(ctrl)

			if tt.wantErr == nil {
				repo.EXPECT().
					CreateClaim(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *claim.Claim, _ any) error {
						c.ID = uuid.New()
						c.CreatedAt = time.Now()
						return nil
					})
			}

			svc := claim.NewService(repo)
			got, err := svc.Create(context.Background(), staff, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, 1, got.Version)
		})
	}
}
