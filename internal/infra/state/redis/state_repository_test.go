package redisstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCodeState_SetGetInit(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	_, err := repo.GetCode(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	created, err := repo.InitCode(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, created)

	state, err := repo.GetCode(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, "r1", state.RoomID)

	require.NoError(t, repo.SetCode(ctx, domain.CodeState{RoomID: "r1", Code: "print(1)", Language: "python"}))

	// 已有状态时 InitCode 不覆盖
	created, err = repo.InitCode(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, created)

	state, err = repo.GetCode(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", state.Code)
	assert.Equal(t, "python", state.Language)
}

func TestPresence_JoinOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "t:")

	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c1", Name: "alice"}))
	time.Sleep(time.Millisecond)
	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c2", Name: "bob"}))
	time.Sleep(time.Millisecond)
	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c3", Name: "alice"}))

	list, err := repo.ListParticipants(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alice", "bob", "alice"}, []string{list[0].Name, list[1].Name, list[2].Name})

	require.NoError(t, repo.RemoveParticipant(ctx, "r1", "c2"))
	list, err = repo.ListParticipants(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := repo.ListParticipants(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPresence_StaleParticipantsArePruned(t *testing.T) {
	// Arrange
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "t:")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c1", Name: "alice"}))
	now = now.Add(time.Millisecond)
	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c2", Name: "bob"}))

	// 只有 c2 所在实例还在发心跳，c1 所在实例已崩溃
	now = now.Add(2 * time.Minute)
	require.NoError(t, repo.TouchParticipants(ctx, "r1", []string{"c2"}))

	// Act
	now = now.Add(ParticipantStaleAfter - time.Minute)
	list, err := repo.ListParticipants(ctx, "r1")

	// Assert
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Name)
	names, err := client.HKeys(ctx, "t:room:r1:users").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, names)

	// 被清理的连接不会因迟到的心跳复活
	require.NoError(t, repo.TouchParticipants(ctx, "r1", []string{"c1", "c2"}))
	list, err = repo.ListParticipants(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPresence_KeysExpireWithoutHeartbeat(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "t:")
	require.NoError(t, repo.AddParticipant(ctx, "r1", domain.Participant{ConnID: "c1", Name: "alice"}))

	for _, key := range []string{"t:room:r1:users", "t:room:r1:joined", "t:room:r1:seen"} {
		ttl := mr.TTL(key)
		assert.True(t, ttl > 0 && ttl <= presenceKeyTTL, "key %s ttl %v", key, ttl)
	}

	// Act: 心跳续约后再过半个周期，键仍然存在
	mr.FastForward(presenceKeyTTL / 2)
	require.NoError(t, repo.TouchParticipants(ctx, "r1", []string{"c1"}))
	mr.FastForward(presenceKeyTTL/2 + time.Second)
	assert.True(t, mr.Exists("t:room:r1:users"))

	// Act: 所有实例都停止心跳
	mr.FastForward(presenceKeyTTL)

	// Assert
	assert.False(t, mr.Exists("t:room:r1:users"))
	assert.False(t, mr.Exists("t:room:r1:joined"))
	assert.False(t, mr.Exists("t:room:r1:seen"))
	list, err := repo.ListParticipants(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRoomEvents_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	got := make(chan domain.RoomEvent, 4)
	cancel, err := repo.SubscribeRoomEvents(ctx, "r1", func(e domain.RoomEvent) { got <- e })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, repo.PublishRoomEvent(ctx, domain.RoomEvent{Type: domain.RoomEventCode, RoomID: "r1", Origin: "c1", Code: "x"}))
	require.NoError(t, repo.PublishRoomEvent(ctx, domain.RoomEvent{Type: domain.RoomEventCode, RoomID: "r2", Code: "other room"}))
	require.NoError(t, repo.PublishRoomEvent(ctx, domain.RoomEvent{Type: domain.RoomEventCode, RoomID: "r1", Code: "y"}))

	for _, want := range []string{"x", "y"} {
		select {
		case e := <-got:
			assert.Equal(t, want, e.Code)
			assert.Equal(t, "r1", e.RoomID)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %q", want)
		}
	}
}

func TestVoteGuard(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	ok, err := repo.AcquireVoteGuard(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireVoteGuard(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.AcquireVoteGuard(ctx, "s2", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ReleaseVoteGuard(ctx, "s1", "alice"))
	ok, err = repo.AcquireVoteGuard(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	for i := 0; i < 3; i++ {
		exceeded, err := repo.CheckRateLimit(ctx, "rl:1.2.3.4", 3, time.Second)
		require.NoError(t, err)
		assert.False(t, exceeded)
	}
	exceeded, err := repo.CheckRateLimit(ctx, "rl:1.2.3.4", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, exceeded)

	mr.FastForward(2 * time.Second)
	exceeded, err = repo.CheckRateLimit(ctx, "rl:1.2.3.4", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestCheckRateLimit_WindowIsNotExtendedByTraffic(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	// Act: 2.5 次/秒，低于 5 次/秒的上限
	blocked := 0
	for i := 0; i < 20; i++ {
		exceeded, err := repo.CheckRateLimit(ctx, "rl:10.0.0.1", 5, time.Second)
		require.NoError(t, err)
		if exceeded {
			blocked++
		}
		mr.FastForward(400 * time.Millisecond)
	}

	// Assert
	assert.Equal(t, 0, blocked)
}

func TestCheckRateLimit_WindowExpiresFromFirstRequest(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisStateRepository(client, "")

	for i := 0; i < 3; i++ {
		_, err := repo.CheckRateLimit(ctx, "rl:10.0.0.2", 3, time.Second)
		require.NoError(t, err)
		mr.FastForward(300 * time.Millisecond)
	}
	// 第一次请求后已过 900ms，仍在同一窗口
	exceeded, err := repo.CheckRateLimit(ctx, "rl:10.0.0.2", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, exceeded)

	mr.FastForward(200 * time.Millisecond)
	exceeded, err = repo.CheckRateLimit(ctx, "rl:10.0.0.2", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, exceeded, "window started by the first request has expired")
}

func TestRedisKVRepository(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := NewRedisKVRepository(client, "")

	_, ok, err := repo.Get(ctx, "auth:r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "auth:r1", "{}"))
	v, ok, err := repo.Get(ctx, "auth:r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{}", v)

	require.NoError(t, repo.Delete(ctx, "auth:r1"))
	_, ok, err = repo.Get(ctx, "auth:r1")
	require.NoError(t, err)
	assert.False(t, ok)
}
