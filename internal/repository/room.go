package repository

import (
	"context"

	"woori-codeshare/internal/domain"
)

// RoomRepository 定义了房间的创建与进入，由外部后端实现。
type RoomRepository interface {
	// Create 创建房间并返回后端分配的房间 ID。
	Create(ctx context.Context, title, password string) (string, error)

	// Enter 校验密码。密码错误时返回 ErrUnauthorized 类错误，房间不存在返回 ErrNotFound。
	Enter(ctx context.Context, roomID, password string) (*domain.Room, error)
}
