package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// SnapshotService 负责快照的列表与创建。
type SnapshotService struct {
	snapshotRepo repository.SnapshotRepository
	collab       *CollaborationService
}

// NewSnapshotService 创建 SnapshotService 实例。
func NewSnapshotService(snapshotRepo repository.SnapshotRepository, collab *CollaborationService) *SnapshotService {
	if snapshotRepo == nil || collab == nil {
		panic("SnapshotRepository and CollaborationService cannot be nil for SnapshotService")
	}
	return &SnapshotService{snapshotRepo: snapshotRepo, collab: collab}
}

// List 返回房间的快照，最新的在前。
func (s *SnapshotService) List(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	if roomID == "" {
		return nil, ErrInvalidInput
	}
	snapshots, err := s.snapshotRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "list_snapshots", "room_id": roomID}).WithError(err).Error("Failed to list snapshots")
		return nil, mapUpstreamError(err, ErrRoomNotFound)
	}
	domain.SortNewestFirst(snapshots)
	return snapshots, nil
}

// Create 保存快照。code 为空时截取房间当前的 CodeState；CodeState 也为空则拒绝。
// title 为空时使用 "Snapshot n"，n 为创建时已有快照数加一。
func (s *SnapshotService) Create(ctx context.Context, roomID, title, description, code string) (*domain.Snapshot, error) {
	if roomID == "" {
		return nil, ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "create_snapshot", "room_id": roomID})

	if code == "" {
		state, err := s.collab.CurrentCode(ctx, roomID)
		if err != nil {
			return nil, err
		}
		code = state.Code
	}
	if code == "" {
		logCtx.Info("Refusing snapshot of empty code state")
		return nil, ErrEmptyCode
	}

	title = strings.TrimSpace(title)
	if title == "" {
		existing, err := s.snapshotRepo.ListByRoom(ctx, roomID)
		if err != nil {
			return nil, mapUpstreamError(err, ErrRoomNotFound)
		}
		title = "Snapshot " + strconv.Itoa(len(existing)+1)
	}

	now := time.Now()
	snapshot := &domain.Snapshot{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		RoomID:      roomID,
		Title:       title,
		Description: description,
		Code:        code,
		CreatedAt:   now,
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		logCtx.WithError(err).Error("Failed to save snapshot")
		return nil, mapUpstreamError(err, ErrRoomNotFound)
	}
	logCtx.WithFields(logrus.Fields{"snapshot_id": snapshot.ID, "title": snapshot.Title}).Info("Snapshot created")
	return snapshot, nil
}
