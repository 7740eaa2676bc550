package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/bootstrap"
	"woori-codeshare/internal/client/api"
	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
	httpHandler "woori-codeshare/internal/handler/http"
	wsHandler "woori-codeshare/internal/handler/websocket"
	"woori-codeshare/internal/hub"
	redisstate "woori-codeshare/internal/infra/state/redis"
	"woori-codeshare/internal/infra/upstream"
	"woori-codeshare/internal/repository/mocks"
	"woori-codeshare/internal/service"
)

type gateway struct {
	url   string
	rooms *mocks.RoomRepository
	snaps *mocks.SnapshotRepository
	votes *mocks.VoteRepository
}

// newGateway 启动完整的网关路由，外部后端用 mock 代替
func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	state := redisstate.NewRedisStateRepository(rc, "test:")

	g := &gateway{
		rooms: new(mocks.RoomRepository),
		snaps: new(mocks.SnapshotRepository),
		votes: new(mocks.VoteRepository),
	}
	passes, err := service.NewRoomPassService("secret", 1)
	require.NoError(t, err)
	collab := service.NewCollaborationService(state, new(mocks.CodeRepository), nil, 0)
	h := hub.NewHub(state, collab, service.NewPresenceService(state))

	router := bootstrap.NewRouter(logrus.New(), bootstrap.Handlers{
		Room:      httpHandler.NewRoomHandler(service.NewRoomService(g.rooms, state, passes), collab),
		Snapshot:  httpHandler.NewSnapshotHandler(service.NewSnapshotService(g.snaps, collab)),
		Comment:   httpHandler.NewCommentHandler(service.NewCommentService(new(mocks.CommentRepository))),
		Vote:      httpHandler.NewVoteHandler(service.NewVoteService(g.votes, state)),
		WebSocket: wsHandler.NewWebSocketHandler(h, ""),
	}, bootstrap.RouterOptions{
		AllowedOrigin:   "*",
		Passes:          passes,
		Limiter:         state,
		RateLimitMax:    1000,
		RateLimitWindow: time.Second,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	g.url = srv.URL
	return g
}

func TestClient_RoomFlow(t *testing.T) {
	// Arrange
	g := newGateway(t)
	c := api.NewClient(g.url, time.Second)
	ctx := context.Background()
	g.rooms.On("Create", mock.Anything, "Pairing", "pw").Return("r1", nil).Once()
	g.rooms.On("Enter", mock.Anything, "r1", "pw").Return(&domain.Room{ID: "r1", Title: "Pairing"}, nil).Once()

	// Act
	roomID, err := c.CreateRoom(ctx, "Pairing", "pw")
	require.NoError(t, err)

	// 未通过密码校验前不能读取房间
	_, err = c.CurrentCode(ctx, roomID)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	entered, err := c.EnterRoom(ctx, roomID, "pw")
	require.NoError(t, err)
	state, err := c.CurrentCode(ctx, roomID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "r1", roomID)
	assert.True(t, entered.Authorized)
	assert.NotEmpty(t, c.Token("r1"))
	assert.Equal(t, "", state.Code)
}

func TestClient_WrongPassword(t *testing.T) {
	g := newGateway(t)
	c := api.NewClient(g.url, time.Second)
	g.rooms.On("Enter", mock.Anything, "r1", "bad").
		Return(nil, &upstream.StatusError{Status: http.StatusUnauthorized, Message: "nope"}).Once()

	_, err := c.EnterRoom(context.Background(), "r1", "bad")

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, c.Token("r1"))
}

func TestClient_SnapshotsAndVotes(t *testing.T) {
	// Arrange
	g := newGateway(t)
	c := api.NewClient(g.url, time.Second)
	ctx := context.Background()
	g.rooms.On("Enter", mock.Anything, "r1", "").Return(&domain.Room{ID: "r1"}, nil)
	_, err := c.EnterRoom(ctx, "r1", "")
	require.NoError(t, err)

	g.snaps.On("Save", mock.Anything, mock.AnythingOfType("*domain.Snapshot")).Return(nil).Once()
	g.snaps.On("ListByRoom", mock.Anything, "r1").Return([]domain.Snapshot{}, nil)
	g.votes.On("Cast", mock.Anything, "s1", domain.VotePositive).Return(nil).Once()
	g.votes.On("Results", mock.Anything, "s1").Return(domain.VoteCounts{domain.VotePositive: 1}, nil)

	// Act
	snap, err := c.CreateSnapshot(ctx, "r1", dto.CreateSnapshotRequest{Title: "v1", Code: "print(1)"})
	require.NoError(t, err)
	require.NoError(t, c.CastVote(ctx, "r1", "s1", "voter-1", domain.VotePositive))
	dupErr := c.CastVote(ctx, "r1", "s1", "voter-1", domain.VotePositive)
	counts, err := c.VoteResults(ctx, "r1", "s1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.Title)
	assert.Equal(t, "print(1)", snap.Code)
	assert.ErrorIs(t, dupErr, api.ErrConflict)
	assert.Equal(t, 1, counts[domain.VotePositive])
}

func TestClient_TransportFailure(t *testing.T) {
	c := api.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.ListSnapshots(context.Background(), "r1")
	assert.ErrorIs(t, err, api.ErrTransport)
}

func TestClient_WebSocketURL(t *testing.T) {
	c := api.NewClient("https://example.com/", time.Second)
	c.SetToken("r1", "tok")
	assert.Equal(t, "wss://example.com/ws/room/r1?token=tok&user=alice", c.WebSocketURL("r1", "alice"))
}

func TestError_Classification(t *testing.T) {
	assert.ErrorIs(t, &api.Error{Status: http.StatusBadRequest}, api.ErrInvalidInput)
	assert.ErrorIs(t, &api.Error{Status: http.StatusForbidden}, api.ErrUnauthorized)
	assert.ErrorIs(t, &api.Error{Status: http.StatusNotFound}, api.ErrNotFound)
	assert.ErrorIs(t, &api.Error{Status: http.StatusBadGateway}, api.ErrUpstream)
	assert.NotErrorIs(t, &api.Error{Status: http.StatusConflict}, api.ErrNotFound)
}
