package workorder_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carvex/warranty/internal/workorder"
)

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, workorder.StatusOpen.IsTerminal())
	assert.True(t, workorder.StatusDone.IsTerminal())
	assert.True(t, workorder.StatusClosed.IsTerminal())
}

func TestService_Close(t *testing.T) {
	type testCase struct {
		name      string
		to        workorder.Status
		current   workorder.Status
		setupMock func(m *workorder.MockRepository, id uuid.UUID, current workorder.Status)
		wantErr   error
	}

	tests := []testCase{
		{
			name:    "Done",
			to:      workorder.StatusDone,
			current: workorder.StatusOpen,
			setupMock: func(m *workorder.MockRepository, id uuid.UUID, current workorder.Status) {
				m.EXPECT().GetWorkOrder(gomock.Any(), id).Return(&workorder.WorkOrder{ID: id, Status: current}, nil)
				m.EXPECT().CloseWorkOrder(gomock.Any(), id, workorder.StatusDone, gomock.Any()).Return(nil)
			},
		},
		{
			name:    "AlreadyClosed",
			to:      workorder.StatusClosed,
			current: workorder.StatusDone,
			setupMock: func(m *workorder.MockRepository, id uuid.UUID, current workorder.Status) {
				m.EXPECT().GetWorkOrder(gomock.Any(), id).Return(&workorder.WorkOrder{ID: id, Status: current}, nil)
			},
			wantErr: workorder.ErrAlreadyClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := workorder.NewMockRepository(ctrl)

			id := uuid.New()
			if tt.setupMock != nil {
				tt.setupMock(repo, id, tt.current)
			}

			svc := workorder.NewService(repo)
			err := svc.Close(context.Background(), id, tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestService_CloseRejectsOpenTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := workorder.NewMockRepository(ctrl)
	svc := workorder.NewService(repo)

	err := svc.Close(context.Background(), uuid.New(), workorder.StatusOpen)
	assert.Error(t, err)
}

func TestService_HasOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := workorder.NewMockRepository(ctrl)

	claimID := uuid.New()
	repo.EXPECT().HasOpen(gomock.Any(), claimID, workorder.TypeEVM).Return(true, nil)

	svc := workorder.NewService(repo)
	open, err := svc.HasOpen(context.Background(), claimID, workorder.TypeEVM)
	require.NoError(t, err)
	assert.True(t, open)
}
