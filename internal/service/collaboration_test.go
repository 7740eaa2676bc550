package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
	"woori-codeshare/internal/repository/mocks"
	"woori-codeshare/internal/service"
	"woori-codeshare/internal/tasks"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task.Type())
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func TestCollaborationService_UpdateCode_StoresPublishesAndSchedules(t *testing.T) {
	// Arrange
	stateRepo := new(mocks.StateRepository)
	codeRepo := new(mocks.CodeRepository)
	enq := new(mockEnqueuer)
	svc := service.NewCollaborationService(stateRepo, codeRepo, enq, time.Second)
	ctx := context.Background()

	stateRepo.On("SetCode", ctx, mock.MatchedBy(func(s domain.CodeState) bool {
		return s.RoomID == "r1" && s.Code == "print(1)"
	})).Return(nil).Once()
	stateRepo.On("PublishRoomEvent", ctx, mock.MatchedBy(func(e domain.RoomEvent) bool {
		return e.Type == domain.RoomEventCode && e.RoomID == "r1" && e.Origin == "c1" && e.Code == "print(1)"
	})).Return(nil).Once()
	enq.On("EnqueueContext", ctx, tasks.TypeCodeCheckpoint).Return(&asynq.TaskInfo{}, nil).Once()

	// Act
	state, err := svc.UpdateCode(ctx, "r1", "c1", "print(1)")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "print(1)", state.Code)
	assert.NotEmpty(t, state.Language)
	stateRepo.AssertExpectations(t)
	enq.AssertExpectations(t)
}

func TestCollaborationService_UpdateCode_DuplicateCheckpointIgnored(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	enq := new(mockEnqueuer)
	svc := service.NewCollaborationService(stateRepo, new(mocks.CodeRepository), enq, time.Second)
	ctx := context.Background()

	stateRepo.On("SetCode", ctx, mock.Anything).Return(nil)
	stateRepo.On("PublishRoomEvent", ctx, mock.Anything).Return(errors.New("redis down"))
	enq.On("EnqueueContext", ctx, tasks.TypeCodeCheckpoint).Return(nil, asynq.ErrTaskIDConflict)

	// 广播和检查点失败都不影响写入结果
	_, err := svc.UpdateCode(ctx, "r1", "c1", "x")
	assert.NoError(t, err)
}

func TestCollaborationService_UpdateCode_StoreFailure(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	svc := service.NewCollaborationService(stateRepo, new(mocks.CodeRepository), nil, 0)
	ctx := context.Background()
	stateRepo.On("SetCode", ctx, mock.Anything).Return(errors.New("boom"))

	_, err := svc.UpdateCode(ctx, "r1", "c1", "x")
	assert.ErrorIs(t, err, service.ErrInternalServer)
	stateRepo.AssertNotCalled(t, "PublishRoomEvent", mock.Anything, mock.Anything)
}

func TestCollaborationService_CurrentCode_FallsBackToCheckpoint(t *testing.T) {
	// Arrange
	stateRepo := new(mocks.StateRepository)
	codeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(stateRepo, codeRepo, nil, 0)
	ctx := context.Background()

	stateRepo.On("GetCode", ctx, "r1").Return(nil, repository.ErrNotFound).Once()
	codeRepo.On("FindByRoomID", ctx, "r1").Return(&domain.CodeCheckpoint{RoomID: "r1", Code: "saved", Language: "go"}, nil).Once()
	stateRepo.On("SetCode", ctx, mock.MatchedBy(func(s domain.CodeState) bool { return s.Code == "saved" })).Return(nil).Once()

	// Act
	state, err := svc.CurrentCode(ctx, "r1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "saved", state.Code)
	stateRepo.AssertExpectations(t)
	codeRepo.AssertExpectations(t)
}

func TestCollaborationService_CurrentCode_EmptyWhenNothingStored(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	codeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(stateRepo, codeRepo, nil, 0)
	ctx := context.Background()

	stateRepo.On("GetCode", ctx, "r1").Return(nil, repository.ErrNotFound)
	codeRepo.On("FindByRoomID", ctx, "r1").Return(nil, repository.ErrNotFound)

	state, err := svc.CurrentCode(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, domain.DefaultLanguage, state.Language)
}

func TestCollaborationService_Checkpoint(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	codeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(stateRepo, codeRepo, nil, 0)
	ctx := context.Background()

	stateRepo.On("GetCode", ctx, "r1").Return(&domain.CodeState{RoomID: "r1", Code: "a"}, nil)
	codeRepo.On("Save", ctx, mock.MatchedBy(func(cp *domain.CodeCheckpoint) bool {
		return cp.RoomID == "r1" && cp.Code == "a"
	})).Return(nil).Once()
	stateRepo.On("GetCode", ctx, "gone").Return(nil, repository.ErrNotFound)

	require.NoError(t, svc.Checkpoint(ctx, "r1"))
	require.NoError(t, svc.Checkpoint(ctx, "gone"))
	codeRepo.AssertExpectations(t)
}
