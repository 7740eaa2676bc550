package repository

import (
	"context"

	"woori-codeshare/internal/domain"
)

// CodeRepository 定义了 CodeState 检查点在数据库中的存取。
type CodeRepository interface {
	// FindByRoomID 未找到时返回 ErrNotFound。
	FindByRoomID(ctx context.Context, roomID string) (*domain.CodeCheckpoint, error)

	// Save 按房间 ID 插入或覆盖检查点。
	Save(ctx context.Context, checkpoint *domain.CodeCheckpoint) error

	// ListRoomIDs 返回所有已有检查点的房间。
	ListRoomIDs(ctx context.Context) ([]string, error)
}
