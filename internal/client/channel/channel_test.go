package channel_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/client/channel"
	"woori-codeshare/internal/dto"
	wsHandler "woori-codeshare/internal/handler/websocket"
	"woori-codeshare/internal/hub"
	redisstate "woori-codeshare/internal/infra/state/redis"
	"woori-codeshare/internal/repository/mocks"
	"woori-codeshare/internal/service"
)

// recorder 收集回调收到的代码
type recorder struct {
	mu    sync.Mutex
	codes []string
}

func (r *recorder) add(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes...)
}

func TestCodeChannel_PublishReachesOthersOnly(t *testing.T) {
	// Arrange
	broker := channel.NewMemoryBroker()
	alice, bob := broker.Connect("alice"), broker.Connect("bob")
	defer alice.Close()
	defer bob.Close()
	aliceCh, bobCh := channel.NewCodeChannel(alice), channel.NewCodeChannel(bob)

	var aliceGot, bobGot recorder
	_, err := aliceCh.Attach("r1", aliceGot.add)
	require.NoError(t, err)
	_, err = bobCh.Attach("r1", bobGot.add)
	require.NoError(t, err)

	// Act
	aliceCh.Publish("r1", "print(1)")
	aliceCh.Publish("r1", "print(2)")

	// Assert
	assert.Eventually(t, func() bool { return len(bobGot.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"print(1)", "print(2)"}, bobGot.snapshot())
	assert.Empty(t, aliceGot.snapshot())
}

func TestCodeChannel_RoomsAreIsolated(t *testing.T) {
	broker := channel.NewMemoryBroker()
	a, b := broker.Connect("a"), broker.Connect("b")
	defer a.Close()
	defer b.Close()

	var got recorder
	_, err := channel.NewCodeChannel(b).Attach("r2", got.add)
	require.NoError(t, err)

	channel.NewCodeChannel(a).Publish("r1", "x")
	require.NoError(t, broker.Publish(dto.CodeTopic("r2"), dto.CodeEvent{EventType: dto.EventTypeUpdate, Code: "y"}))

	assert.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"y"}, got.snapshot())
}

func TestCodeChannel_DetachedEventsAreNotReplayed(t *testing.T) {
	// Arrange
	broker := channel.NewMemoryBroker()
	writer, reader := broker.Connect("w"), broker.Connect("r")
	defer writer.Close()
	defer reader.Close()
	wCh, rCh := channel.NewCodeChannel(writer), channel.NewCodeChannel(reader)

	var got recorder
	sub, err := rCh.Attach("r1", got.add)
	require.NoError(t, err)

	// Act
	rCh.Detach(sub)
	wCh.Publish("r1", "missed")
	_, err = rCh.Attach("r1", got.add)
	require.NoError(t, err)
	wCh.Publish("r1", "after")

	// Assert
	assert.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"after"}, got.snapshot())
}

func TestCodeChannel_PublishWhenClosedIsSilent(t *testing.T) {
	broker := channel.NewMemoryBroker()
	conn := broker.Connect("a")
	require.NoError(t, conn.Close())

	ch := channel.NewCodeChannel(conn)
	assert.NotPanics(t, func() { ch.Publish("r1", "x") })

	_, err := ch.Attach("r1", func(string) {})
	assert.ErrorIs(t, err, channel.ErrNotConnected)
	assert.ErrorIs(t, conn.Send(dto.DestinationUpdateCode, dto.UpdateCodeCommand{RoomID: "r1"}), channel.ErrNotConnected)
}

func TestMemoryBroker_PresenceBroadcast(t *testing.T) {
	broker := channel.NewMemoryBroker()
	alice, bob := broker.Connect("alice"), broker.Connect("bob")
	defer alice.Close()

	var mu sync.Mutex
	var last dto.PresenceEvent
	_, err := alice.Subscribe(dto.UsersTopic("r1"), func(body json.RawMessage) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.Unmarshal(body, &last)
	})
	require.NoError(t, err)

	require.NoError(t, alice.Send(dto.DestinationJoinRoom, dto.JoinRoomCommand{RoomID: "r1"}))
	require.NoError(t, bob.Send(dto.DestinationJoinRoom, dto.JoinRoomCommand{RoomID: "r1"}))
	current := func() dto.PresenceEvent {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	assert.Eventually(t, func() bool { return current().UserCount == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"alice", "bob"}, current().Users)

	require.NoError(t, bob.Close())
	assert.Eventually(t, func() bool { return current().UserCount == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"alice"}, current().Users)
}

func TestMemoryConn_UnknownDestination(t *testing.T) {
	conn := channel.NewMemoryBroker().Connect("a")
	defer conn.Close()
	assert.ErrorIs(t, conn.Send("/app/nope", map[string]string{}), channel.ErrUnknownDestination)
}

func newGateway(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	state := redisstate.NewRedisStateRepository(client, "test:")
	collab := service.NewCollaborationService(state, new(mocks.CodeRepository), nil, 0)
	h := hub.NewHub(state, collab, service.NewPresenceService(state))
	go h.Run()
	t.Cleanup(h.StopAllSubscriptions)

	router := gin.New()
	router.GET("/ws/room/:roomId", wsHandler.NewWebSocketHandler(h, "").HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSConn_AgainstGateway(t *testing.T) {
	// Arrange
	base := newGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := channel.Dial(ctx, base+"/ws/room/r1?user=alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, err := channel.Dial(ctx, base+"/ws/room/r1?user=bob", nil)
	require.NoError(t, err)
	defer bob.Close()

	var got recorder
	_, err = channel.NewCodeChannel(bob).Attach("r1", got.add)
	require.NoError(t, err)
	// 订阅由网关异步处理，等待它生效后再发布
	time.Sleep(100 * time.Millisecond)

	// Act
	channel.NewCodeChannel(alice).Publish("r1", "print(1)")

	// Assert
	assert.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"print(1)"}, got.snapshot())

	require.NoError(t, alice.Close())
	assert.False(t, alice.Connected())
	assert.ErrorIs(t, alice.Send(dto.DestinationUpdateCode, dto.UpdateCodeCommand{RoomID: "r1"}), channel.ErrNotConnected)
}
