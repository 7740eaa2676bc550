package repository

import (
	"context"
	"time"

	"woori-codeshare/internal/domain"
)

// StateRepository 定义了与房间实时状态相关的操作，通常由 Redis 实现。
type StateRepository interface {
	// === Code State ===

	// GetCode 获取房间当前的 CodeState。没有记录时返回 ErrNotFound。
	GetCode(ctx context.Context, roomID string) (*domain.CodeState, error)

	// SetCode 整篇覆盖房间的 CodeState。
	SetCode(ctx context.Context, state domain.CodeState) error

	// InitCode 仅当房间尚无 CodeState 时写入空状态，返回是否写入。
	InitCode(ctx context.Context, roomID string) (bool, error)

	// === Presence ===

	AddParticipant(ctx context.Context, roomID string, p domain.Participant) error
	RemoveParticipant(ctx context.Context, roomID, connID string) error
	// TouchParticipants 刷新连接心跳。心跳超时的参与者在下次 ListParticipants 时被清理。
	TouchParticipants(ctx context.Context, roomID string, connIDs []string) error
	// ListParticipants 按加入顺序返回当前在线的参与者。
	ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error)

	// === PubSub ===

	// PublishRoomEvent 将事件发布到房间频道，供所有网关实例转发。
	PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error

	// SubscribeRoomEvents 订阅房间频道。handler 在单独的 goroutine 中按序调用，
	// 返回的函数用于取消订阅。
	SubscribeRoomEvents(ctx context.Context, roomID string, handler func(domain.RoomEvent)) (func(), error)

	// === Vote Guard ===

	// AcquireVoteGuard 为投票者在快照上占位，已投过票返回 false。
	AcquireVoteGuard(ctx context.Context, snapshotID, voterID string) (bool, error)
	ReleaseVoteGuard(ctx context.Context, snapshotID, voterID string) error

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 如果超限，false 如果未超限。
	CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error)
}
