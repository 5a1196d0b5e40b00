package cancellation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carvex/warranty/internal/cancellation"
	"github.com/carvex/warranty/internal/claim"
)

var staff = claim.Actor{ID: uuid.New(), Role: claim.RoleSCStaff}

func newClaim(mut ...func(*claim.Claim)) *claim.Claim {
	c := &claim.Claim{
		ID:          uuid.New(),
		ClaimNumber: "WC-2026-0099",
		Status:      claim.StatusReadyForRepair,
		RepairType:  claim.RepairTypeEVM,
		Version:     2,
	}

	for _, m := range mut {
		m(c)
	}

	return c
}

func newService(t *testing.T, c *claim.Claim) (*cancellation.Service, *claim.MockTx) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := claim.NewMockRepository(ctrl)
	tx := claim.NewMockTx(ctrl)

	repo.EXPECT().Begin(gomock.Any(), c.ID).Return(tx, nil)
	tx.EXPECT().Claim().Return(c)
	tx.EXPECT().Rollback().Return(nil).AnyTimes()

	return cancellation.NewService(repo), tx
}

func TestRequest(t *testing.T) {
	c := newClaim()
	svc, tx := newService(t, c)

	tx.EXPECT().UpdateClaim(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)

	got, err := svc.Request(context.Background(), c.ID, staff, 2, "customer sold the vehicle")
	require.NoError(t, err)

	// Status untouched, counter and version bumped, reason and requester
	// parked for the resolution.
	assert.Equal(t, claim.StatusReadyForRepair, got.Status)
	assert.Equal(t, 1, got.CancelRequestCount)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "customer sold the vehicle", got.PendingCancelReason)
	require.NotNil(t, got.PendingCancelRequesterID)
	assert.Equal(t, staff.ID, *got.PendingCancelRequesterID)
}

func TestRequest_LimitExceeded(t *testing.T) {
	c := newClaim(func(c *claim.Claim) {
		c.CancelRequestCount = 2
	})
	svc, _ := newService(t, c)

	_, err := svc.Request(context.Background(), c.ID, staff, 2, "again")
	assert.ErrorIs(t, err, claim.ErrCancelLimitExceeded)
	assert.ErrorIs(t, err, claim.ErrCounterExhausted)
	assert.Equal(t, 2, c.CancelRequestCount)
}

func TestRequest_AlreadyPending(t *testing.T) {
	c := newClaim(func(c *claim.Claim) {
		c.CancelRequestCount = 1
		c.PendingCancelReason = "first reason"
	})
	svc, _ := newService(t, c)

	_, err := svc.Request(context.Background(), c.ID, staff, 2, "second reason")
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
	assert.Equal(t, 1, c.CancelRequestCount)
}

func TestRequest_StaleVersion(t *testing.T) {
	c := newClaim()
	svc, _ := newService(t, c)

	_, err := svc.Request(context.Background(), c.ID, staff, 1, "reason")
	assert.ErrorIs(t, err, claim.ErrStaleState)
	assert.Equal(t, 0, c.CancelRequestCount)
}

func TestResolve_Approve(t *testing.T) {
	requesterID := uuid.New()
	c := newClaim(func(c *claim.Claim) {
		c.CancelRequestCount = 1
		c.PendingCancelReason = "customer sold the vehicle"
		c.PendingCancelRequesterID = &requesterID
	})
	svc, tx := newService(t, c)

	tx.EXPECT().UpdateClaim(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().AppendHistory(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)

	res, err := svc.Resolve(context.Background(), c.ID, staff, 2, cancellation.DecisionApprove, "confirmed by phone")
	require.NoError(t, err)

	assert.Equal(t, claim.StatusCanceledReadyToHandover, res.Claim.Status)
	assert.Empty(t, res.Claim.PendingCancelReason)
	assert.Nil(t, res.Claim.PendingCancelRequesterID)
	require.NotNil(t, res.Entry)
	// The ledger entry names the original requester, not the resolver.
	assert.Contains(t, res.Entry.Note, "customer sold the vehicle")
	assert.Contains(t, res.Entry.Note, "requested by "+requesterID.String())
}

func TestResolve_Reject(t *testing.T) {
	requesterID := uuid.New()
	c := newClaim(func(c *claim.Claim) {
		c.CancelRequestCount = 1
		c.PendingCancelReason = "customer sold the vehicle"
		c.PendingCancelRequesterID = &requesterID
	})
	svc, tx := newService(t, c)

	// Rejection clears the request without a status change, so no ledger
	// entry is written.
	tx.EXPECT().UpdateClaim(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)

	res, err := svc.Resolve(context.Background(), c.ID, staff, 2, cancellation.DecisionReject, "repair almost done")
	require.NoError(t, err)

	assert.Equal(t, claim.StatusReadyForRepair, res.Claim.Status)
	assert.Empty(t, res.Claim.PendingCancelReason)
	assert.Nil(t, res.Claim.PendingCancelRequesterID)
	assert.Nil(t, res.Entry)
}

func TestResolve_NoPendingRequest(t *testing.T) {
	c := newClaim()
	svc, _ := newService(t, c)

	_, err := svc.Resolve(context.Background(), c.ID, staff, 2, cancellation.DecisionApprove, "")
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestCancelDirect(t *testing.T) {
	c := newClaim()
	svc, tx := newService(t, c)

	tx.EXPECT().UpdateClaim(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().AppendHistory(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)

	res, err := svc.CancelDirect(context.Background(), c.ID, staff, 2, "duplicate claim")
	require.NoError(t, err)

	assert.Equal(t, claim.StatusCanceledReadyToHandover, res.Claim.Status)
	// Direct cancel does not consume the request budget.
	assert.Equal(t, 0, res.Claim.CancelRequestCount)
}

func TestCancelDirect_StaffOnly(t *testing.T) {
	c := newClaim()
	svc, _ := newService(t, c)

	tech := claim.Actor{ID: uuid.New(), Role: claim.RoleSCTechnician}

	_, err := svc.CancelDirect(context.Background(), c.ID, tech, 2, "nope")
	assert.ErrorIs(t, err, claim.ErrGuardViolation)
}

func TestCancelDirect_InactiveClaim(t *testing.T) {
	c := newClaim(func(c *claim.Claim) {
		c.Status = claim.StatusClaimDone
	})
	svc, _ := newService(t, c)

	_, err := svc.CancelDirect(context.Background(), c.ID, staff, 2, "too late")
	assert.ErrorIs(t, err, claim.ErrInvalidTransition)
}
