package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"woori-codeshare/internal/domain"
)

// RoomRepository 是 repository.RoomRepository 的 mock
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) Create(ctx context.Context, title, password string) (string, error) {
	args := m.Called(ctx, title, password)
	return args.String(0), args.Error(1)
}

func (m *RoomRepository) Enter(ctx context.Context, roomID, password string) (*domain.Room, error) {
	args := m.Called(ctx, roomID, password)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

// SnapshotRepository 是 repository.SnapshotRepository 的 mock
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	args := m.Called(ctx, roomID)
	list, _ := args.Get(0).([]domain.Snapshot)
	return list, args.Error(1)
}

func (m *SnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

// CommentRepository 是 repository.CommentRepository 的 mock
type CommentRepository struct {
	mock.Mock
}

func (m *CommentRepository) ListBySnapshot(ctx context.Context, snapshotID string) ([]domain.Comment, error) {
	args := m.Called(ctx, snapshotID)
	list, _ := args.Get(0).([]domain.Comment)
	return list, args.Error(1)
}

func (m *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *CommentRepository) UpdateContent(ctx context.Context, commentID, content string) (*domain.Comment, error) {
	args := m.Called(ctx, commentID, content)
	c, _ := args.Get(0).(*domain.Comment)
	return c, args.Error(1)
}

func (m *CommentRepository) Delete(ctx context.Context, commentID string) error {
	return m.Called(ctx, commentID).Error(0)
}

func (m *CommentRepository) SetSolved(ctx context.Context, commentID string, solved bool) (*domain.Comment, error) {
	args := m.Called(ctx, commentID, solved)
	c, _ := args.Get(0).(*domain.Comment)
	return c, args.Error(1)
}

// VoteRepository 是 repository.VoteRepository 的 mock
type VoteRepository struct {
	mock.Mock
}

func (m *VoteRepository) Results(ctx context.Context, snapshotID string) (domain.VoteCounts, error) {
	args := m.Called(ctx, snapshotID)
	counts, _ := args.Get(0).(domain.VoteCounts)
	return counts, args.Error(1)
}

func (m *VoteRepository) Cast(ctx context.Context, snapshotID string, voteType domain.VoteType) error {
	return m.Called(ctx, snapshotID, voteType).Error(0)
}

// CodeRepository 是 repository.CodeRepository 的 mock
type CodeRepository struct {
	mock.Mock
}

func (m *CodeRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.CodeCheckpoint, error) {
	args := m.Called(ctx, roomID)
	cp, _ := args.Get(0).(*domain.CodeCheckpoint)
	return cp, args.Error(1)
}

func (m *CodeRepository) Save(ctx context.Context, cp *domain.CodeCheckpoint) error {
	return m.Called(ctx, cp).Error(0)
}

func (m *CodeRepository) ListRoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
