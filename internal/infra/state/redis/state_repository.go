package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

const (
	// ParticipantStaleAfter 超过该时长没有心跳的参与者视为已离线（所在实例可能已崩溃）
	ParticipantStaleAfter = 3 * time.Minute
	// 房间的在线状态键整体过期时间，每次加入或心跳时刷新
	presenceKeyTTL = 10 * time.Minute
)

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cs:" // codeshare
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// --- Key Generation Helpers ---
func (r *RedisStateRepository) codeKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:code", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) usersKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:users", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) joinOrderKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:joined", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) seenKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:seen", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) eventsChannel(roomID string) string {
	return fmt.Sprintf("%sroom:%s:events", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) voteGuardKey(snapshotID, voterID string) string {
	return fmt.Sprintf("%svote:%s:%s", r.keyPrefix, snapshotID, voterID)
}

// === Code State ===

// GetCode 获取房间当前 CodeState
func (r *RedisStateRepository) GetCode(ctx context.Context, roomID string) (*domain.CodeState, error) {
	key := r.codeKey(roomID)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get code state for room %s from %s: %w", roomID, key, err)
	}
	var state domain.CodeState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal code state for room %s: %w", roomID, err)
	}
	state.RoomID = roomID
	return &state, nil
}

// SetCode 整篇覆盖 CodeState
func (r *RedisStateRepository) SetCode(ctx context.Context, state domain.CodeState) error {
	key := r.codeKey(state.RoomID)
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal code state for room %s: %w", state.RoomID, err)
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set code state for room %s on key %s: %w", state.RoomID, key, err)
	}
	return nil
}

// InitCode 仅在不存在时写入空 CodeState
func (r *RedisStateRepository) InitCode(ctx context.Context, roomID string) (bool, error) {
	raw, err := json.Marshal(domain.CodeState{RoomID: roomID, Language: domain.DefaultLanguage, UpdatedAt: time.Now()})
	if err != nil {
		return false, fmt.Errorf("redis: failed to marshal empty code state: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.codeKey(roomID), raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to init code state for room %s: %w", roomID, err)
	}
	return ok, nil
}

// === Presence ===

// AddParticipant 记录连接及其用户名，加入顺序保存在有序集合里。
func (r *RedisStateRepository) AddParticipant(ctx context.Context, roomID string, p domain.Participant) error {
	now := r.now()
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.usersKey(roomID), p.ConnID, p.Name)
	pipe.ZAddNX(ctx, r.joinOrderKey(roomID), &redis.Z{Score: float64(now.UnixMicro()), Member: p.ConnID})
	pipe.ZAdd(ctx, r.seenKey(roomID), &redis.Z{Score: float64(now.Unix()), Member: p.ConnID})
	r.expirePresence(ctx, pipe, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to add participant %s to room %s: %w", p.ConnID, roomID, err)
	}
	return nil
}

// TouchParticipants 刷新本实例上仍在线连接的心跳。
// 只更新已存在的成员，已被清理的连接不会因心跳复活。
func (r *RedisStateRepository) TouchParticipants(ctx context.Context, roomID string, connIDs []string) error {
	if len(connIDs) == 0 {
		return nil
	}
	score := float64(r.now().Unix())
	members := make([]*redis.Z, 0, len(connIDs))
	for _, id := range connIDs {
		members = append(members, &redis.Z{Score: score, Member: id})
	}
	pipe := r.client.TxPipeline()
	pipe.ZAddXX(ctx, r.seenKey(roomID), members...)
	r.expirePresence(ctx, pipe, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to touch participants in room %s: %w", roomID, err)
	}
	return nil
}

func (r *RedisStateRepository) expirePresence(ctx context.Context, pipe redis.Pipeliner, roomID string) {
	pipe.Expire(ctx, r.usersKey(roomID), presenceKeyTTL)
	pipe.Expire(ctx, r.joinOrderKey(roomID), presenceKeyTTL)
	pipe.Expire(ctx, r.seenKey(roomID), presenceKeyTTL)
}

// RemoveParticipant 移除连接
func (r *RedisStateRepository) RemoveParticipant(ctx context.Context, roomID, connID string) error {
	return r.removeParticipants(ctx, roomID, connID)
}

func (r *RedisStateRepository) removeParticipants(ctx context.Context, roomID string, connIDs ...string) error {
	members := make([]interface{}, len(connIDs))
	for i, id := range connIDs {
		members[i] = id
	}
	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.usersKey(roomID), connIDs...)
	pipe.ZRem(ctx, r.joinOrderKey(roomID), members...)
	pipe.ZRem(ctx, r.seenKey(roomID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to remove participants %v from room %s: %w", connIDs, roomID, err)
	}
	return nil
}

// pruneStale 清理心跳超时的连接，返回被清理的 connID
func (r *RedisStateRepository) pruneStale(ctx context.Context, roomID string) ([]string, error) {
	cutoff := r.now().Add(-ParticipantStaleAfter).Unix()
	stale, err := r.client.ZRangeByScore(ctx, r.seenKey(roomID), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("(%d", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to scan stale participants in room %s: %w", roomID, err)
	}
	if len(stale) == 0 {
		return nil, nil
	}
	if err := r.removeParticipants(ctx, roomID, stale...); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"room_id":  roomID,
		"conn_ids": stale,
	}).Warn("Removed participants with expired heartbeat")
	return stale, nil
}

// ListParticipants 按加入顺序返回在线参与者
func (r *RedisStateRepository) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	if _, err := r.pruneStale(ctx, roomID); err != nil {
		return nil, err
	}
	connIDs, err := r.client.ZRange(ctx, r.joinOrderKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list participants for room %s: %w", roomID, err)
	}
	participants := make([]domain.Participant, 0, len(connIDs))
	if len(connIDs) == 0 {
		return participants, nil
	}
	names, err := r.client.HMGet(ctx, r.usersKey(roomID), connIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read participant names for room %s: %w", roomID, err)
	}
	for i, v := range names {
		name, ok := v.(string)
		if !ok {
			// 有序集合与哈希短暂不一致时跳过
			continue
		}
		participants = append(participants, domain.Participant{ConnID: connIDs[i], Name: name})
	}
	return participants, nil
}

// === PubSub ===

// PublishRoomEvent 将事件发布到房间频道
func (r *RedisStateRepository) PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error {
	channel := r.eventsChannel(event.RoomID)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal room event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
			"event_type":   event.Type,
			"room_id":      event.RoomID,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish event to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeRoomEvents 订阅房间频道，直到返回的取消函数被调用。
func (r *RedisStateRepository) SubscribeRoomEvents(ctx context.Context, roomID string, handler func(domain.RoomEvent)) (func(), error) {
	channel := r.eventsChannel(roomID)
	pubsub := r.client.Subscribe(ctx, channel)
	// 等待订阅确认，保证返回后发布的事件不会丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var event domain.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logrus.WithField("channel", channel).WithError(err).Warn("Dropping malformed room event")
				continue
			}
			handler(event)
		}
	}()

	return func() {
		_ = pubsub.Close()
		<-done
	}, nil
}

// === Vote Guard ===

// AcquireVoteGuard 用 SETNX 占位，已存在说明该投票者已经投过票。
func (r *RedisStateRepository) AcquireVoteGuard(ctx context.Context, snapshotID, voterID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.voteGuardKey(snapshotID, voterID), time.Now().Unix(), 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to acquire vote guard for snapshot %s: %w", snapshotID, err)
	}
	return ok, nil
}

// ReleaseVoteGuard 撤销占位，用于上游投票失败时回滚。
func (r *RedisStateRepository) ReleaseVoteGuard(ctx context.Context, snapshotID, voterID string) error {
	if err := r.client.Del(ctx, r.voteGuardKey(snapshotID, voterID)).Err(); err != nil {
		return fmt.Errorf("redis: failed to release vote guard for snapshot %s: %w", snapshotID, err)
	}
	return nil
}

// === Rate Limiting ===

// CheckRateLimit 固定窗口计数：窗口内第一次请求设置过期时间，之后的请求不延长窗口。
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	fullKey := r.keyPrefix + key
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	ttlCmd := pipe.TTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	// 没有过期时间说明是新窗口（或上次设置过期失败）
	if ttlCmd.Val() < 0 {
		if err := r.client.Expire(ctx, fullKey, duration).Err(); err != nil {
			return false, fmt.Errorf("redis: failed to set rate limit window on key %s: %w", key, err)
		}
	}
	return count > int64(limit), nil
}
