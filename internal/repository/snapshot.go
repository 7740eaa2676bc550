package repository

import (
	"context"

	"woori-codeshare/internal/domain"
)

// SnapshotRepository 定义了快照的持久化，由外部后端实现。
type SnapshotRepository interface {
	// ListByRoom 返回房间的所有快照，顺序由调用方决定。
	ListByRoom(ctx context.Context, roomID string) ([]domain.Snapshot, error)

	// Save 保存快照，成功后 snapshot.ID 被回填。
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}
