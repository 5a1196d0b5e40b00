package claim_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/carvex/warranty/internal/claim"
)

func TestStatus_Valid(t *testing.T) {
	valid := []claim.Status{
		claim.StatusDraft, claim.StatusOpen, claim.StatusPendingApproval,
		claim.StatusPendingEVMApproval, claim.StatusEVMApproved, claim.StatusReadyForRepair,
		claim.StatusProblemConflict, claim.StatusProblemSolved, claim.StatusWaitingForParts,
		claim.StatusRepairInProgress, claim.StatusEVMRejected, claim.StatusCustomerPaymentPending,
		claim.StatusCustomerPaid, claim.StatusWorkDone, claim.StatusReadyForHandover,
		claim.StatusHandoverPending, claim.StatusClaimDone, claim.StatusCanceledReadyToHandover,
	}

	for _, s := range valid {
		assert.True(t, s.Valid(), "status %q", s)
	}

	assert.False(t, claim.Status("shipped").Valid())
	assert.False(t, claim.Status("").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, claim.StatusClaimDone.IsTerminal())
	assert.False(t, claim.StatusCanceledReadyToHandover.IsTerminal())
	assert.False(t, claim.StatusHandoverPending.IsTerminal())
}

func TestStatus_Active(t *testing.T) {
	assert.True(t, claim.StatusOpen.IsActive())
	assert.True(t, claim.StatusHandoverPending.IsActive())
	assert.False(t, claim.StatusClaimDone.IsActive())
	assert.False(t, claim.StatusCanceledReadyToHandover.IsActive())
	assert.False(t, claim.Status("shipped").IsActive())
}

func TestClaim_IsAssignedTechnician(t *testing.T) {
	techID := uuid.New()
	c := &claim.Claim{AssignedTechnicianID: &techID}

	assert.True(t, c.IsAssignedTechnician(claim.Actor{ID: techID, Role: claim.RoleSCTechnician}))
	assert.False(t, c.IsAssignedTechnician(claim.Actor{ID: techID, Role: claim.RoleSCStaff}))
	assert.False(t, c.IsAssignedTechnician(claim.Actor{ID: uuid.New(), Role: claim.RoleSCTechnician}))

	none := &claim.Claim{}
	assert.False(t, none.IsAssignedTechnician(claim.Actor{ID: techID, Role: claim.RoleSCTechnician}))
}

func TestClaim_ResolveRequirement(t *testing.T) {
	c := &claim.Claim{MissingRequirements: []string{"photos", "consent form"}}

	c.ResolveRequirement("photos")
	assert.Equal(t, []string{"consent form"}, c.MissingRequirements)
	assert.True(t, c.HasMissingRequirements())

	c.ResolveRequirement("consent form")
	assert.False(t, c.HasMissingRequirements())
}
