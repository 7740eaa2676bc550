package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"woori-codeshare/internal/domain"
)

// StateRepository 是 repository.StateRepository 的 mock
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetCode(ctx context.Context, roomID string) (*domain.CodeState, error) {
	args := m.Called(ctx, roomID)
	state, _ := args.Get(0).(*domain.CodeState)
	return state, args.Error(1)
}

func (m *StateRepository) SetCode(ctx context.Context, state domain.CodeState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *StateRepository) InitCode(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *StateRepository) AddParticipant(ctx context.Context, roomID string, p domain.Participant) error {
	return m.Called(ctx, roomID, p).Error(0)
}

func (m *StateRepository) RemoveParticipant(ctx context.Context, roomID, connID string) error {
	return m.Called(ctx, roomID, connID).Error(0)
}

func (m *StateRepository) TouchParticipants(ctx context.Context, roomID string, connIDs []string) error {
	return m.Called(ctx, roomID, connIDs).Error(0)
}

func (m *StateRepository) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	args := m.Called(ctx, roomID)
	list, _ := args.Get(0).([]domain.Participant)
	return list, args.Error(1)
}

func (m *StateRepository) PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *StateRepository) SubscribeRoomEvents(ctx context.Context, roomID string, handler func(domain.RoomEvent)) (func(), error) {
	args := m.Called(ctx, roomID, handler)
	cancel, _ := args.Get(0).(func())
	return cancel, args.Error(1)
}

func (m *StateRepository) AcquireVoteGuard(ctx context.Context, snapshotID, voterID string) (bool, error) {
	args := m.Called(ctx, snapshotID, voterID)
	return args.Bool(0), args.Error(1)
}

func (m *StateRepository) ReleaseVoteGuard(ctx context.Context, snapshotID, voterID string) error {
	return m.Called(ctx, snapshotID, voterID).Error(0)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, duration)
	return args.Bool(0), args.Error(1)
}
