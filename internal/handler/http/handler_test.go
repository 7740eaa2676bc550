package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
	httpHandler "woori-codeshare/internal/handler/http"
	"woori-codeshare/internal/infra/upstream"
	"woori-codeshare/internal/repository/mocks"
	"woori-codeshare/internal/service"
)

type fixture struct {
	router   *gin.Engine
	rooms    *mocks.RoomRepository
	state    *mocks.StateRepository
	snaps    *mocks.SnapshotRepository
	comments *mocks.CommentRepository
	votes    *mocks.VoteRepository
	codes    *mocks.CodeRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		rooms:    new(mocks.RoomRepository),
		state:    new(mocks.StateRepository),
		snaps:    new(mocks.SnapshotRepository),
		comments: new(mocks.CommentRepository),
		votes:    new(mocks.VoteRepository),
		codes:    new(mocks.CodeRepository),
	}
	passes, err := service.NewRoomPassService("secret", 1)
	require.NoError(t, err)

	collab := service.NewCollaborationService(f.state, f.codes, nil, 0)
	roomH := httpHandler.NewRoomHandler(service.NewRoomService(f.rooms, f.state, passes), collab)
	snapH := httpHandler.NewSnapshotHandler(service.NewSnapshotService(f.snaps, collab))
	commentH := httpHandler.NewCommentHandler(service.NewCommentService(f.comments))
	voteH := httpHandler.NewVoteHandler(service.NewVoteService(f.votes, f.state))

	r := gin.New()
	r.POST("/api/rooms", roomH.CreateRoom)
	r.POST("/api/rooms/:roomId/participants", roomH.EnterRoom)
	r.GET("/api/rooms/:roomId/code", roomH.GetCode)
	r.GET("/api/rooms/:roomId/snapshots", snapH.List)
	r.POST("/api/rooms/:roomId/snapshots", snapH.Create)
	r.GET("/api/rooms/:roomId/snapshots/:snapshotId/comments", commentH.List)
	r.POST("/api/rooms/:roomId/snapshots/:snapshotId/comments", commentH.Create)
	r.PATCH("/api/rooms/:roomId/snapshots/:snapshotId/comments/:commentId", commentH.Update)
	r.DELETE("/api/rooms/:roomId/snapshots/:snapshotId/comments/:commentId", commentH.Delete)
	r.PATCH("/api/rooms/:roomId/snapshots/:snapshotId/comments/:commentId/resolve", commentH.Resolve)
	r.GET("/api/rooms/:roomId/snapshots/:snapshotId/votes", voteH.Results)
	r.POST("/api/rooms/:roomId/snapshots/:snapshotId/votes", voteH.Cast)
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateRoom_ReturnsRoomID(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.rooms.On("Create", mock.Anything, "Pairing", "pw").Return("r1", nil).Once()
	f.state.On("InitCode", mock.Anything, "r1").Return(true, nil).Once()

	// Act
	w := f.do(http.MethodPost, "/api/rooms", dto.CreateRoomRequest{Title: "Pairing", Password: "pw"}, nil)

	// Assert
	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.CreateRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "r1", resp.RoomID)
	f.rooms.AssertExpectations(t)
}

func TestCreateRoom_MissingTitle(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/rooms", map[string]string{"password": "pw"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.rooms.AssertNotCalled(t, "Create")
}

func TestEnterRoom_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.rooms.On("Enter", mock.Anything, "r1", "bad").
		Return(nil, &upstream.StatusError{Status: http.StatusUnauthorized, Message: "wrong password"}).Once()

	w := f.do(http.MethodPost, "/api/rooms/r1/participants?password=bad", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, service.ErrWrongPassword.Error(), decodeError(t, w))
}

func TestEnterRoom_IssuesToken(t *testing.T) {
	f := newFixture(t)
	f.rooms.On("Enter", mock.Anything, "r1", "pw").Return(&domain.Room{ID: "r1", Title: "Pairing"}, nil).Once()

	w := f.do(http.MethodPost, "/api/rooms/r1/participants?password=pw", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.EnterRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Authorized)
	assert.Equal(t, "Pairing", resp.Title)
	assert.NotEmpty(t, resp.Token)
}

func TestGetCode_FromState(t *testing.T) {
	f := newFixture(t)
	f.state.On("GetCode", mock.Anything, "r1").
		Return(&domain.CodeState{RoomID: "r1", Code: "print(1)", Language: "python"}, nil).Once()

	w := f.do(http.MethodGet, "/api/rooms/r1/code", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.CodeState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "print(1)", resp.Data.Code)
}

func TestListSnapshots_UpstreamUnreachable(t *testing.T) {
	f := newFixture(t)
	f.snaps.On("ListByRoom", mock.Anything, "r1").
		Return(nil, fmt.Errorf("%w: dial tcp: refused", upstream.ErrTransport)).Once()

	w := f.do(http.MethodGet, "/api/rooms/r1/snapshots", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateSnapshot_RoomMismatch(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/rooms/r1/snapshots", dto.CreateSnapshotRequest{RoomID: "r2", Code: "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.snaps.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateComment_ReplyMessage(t *testing.T) {
	// Arrange
	f := newFixture(t)
	now := time.Now()
	f.comments.On("ListBySnapshot", mock.Anything, "s1").
		Return([]domain.Comment{{ID: "c1", SnapshotID: "s1", Content: "why?", CreatedAt: now}}, nil).Once()
	f.comments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Comment")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Comment).ID = "c2" }).
		Return(nil).Once()
	parent := "c1"

	// Act
	w := f.do(http.MethodPost, "/api/rooms/r1/snapshots/s1/comments",
		dto.CreateCommentRequest{Content: "because", ParentCommentID: &parent}, nil)

	// Assert
	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.CommentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.MsgReplyPosted, resp.Message)
	assert.Equal(t, "c2", resp.Data.ID)
}

func TestUpdateComment_RefusedWhenAnswered(t *testing.T) {
	f := newFixture(t)
	parent := "c1"
	now := time.Now()
	f.comments.On("ListBySnapshot", mock.Anything, "s1").Return([]domain.Comment{
		{ID: "c1", SnapshotID: "s1", Content: "why?", CreatedAt: now},
		{ID: "c2", SnapshotID: "s1", ParentID: &parent, Content: "because", CreatedAt: now.Add(time.Second)},
	}, nil).Once()

	w := f.do(http.MethodPatch, "/api/rooms/r1/snapshots/s1/comments/c1", dto.UpdateCommentRequest{Content: "edited"}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	f.comments.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveComment_RequiresSolved(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPatch, "/api/rooms/r1/snapshots/s1/comments/c1/resolve", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCastVote_RequiresVoterHeader(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/rooms/r1/snapshots/s1/votes", dto.CastVoteRequest{VoteType: "POSITIVE"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.state.AssertNotCalled(t, "AcquireVoteGuard", mock.Anything, mock.Anything, mock.Anything)
}

func TestCastVote_InvalidType(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/rooms/r1/snapshots/s1/votes", dto.CastVoteRequest{VoteType: "MAYBE"},
		map[string]string{dto.VoterHeader: "v1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCastVote_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.state.On("AcquireVoteGuard", mock.Anything, "s1", "v1").Return(false, nil).Once()

	w := f.do(http.MethodPost, "/api/rooms/r1/snapshots/s1/votes", dto.CastVoteRequest{VoteType: "POSITIVE"},
		map[string]string{dto.VoterHeader: "v1"})

	assert.Equal(t, http.StatusConflict, w.Code)
	f.votes.AssertNotCalled(t, "Cast", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoteResults_Percentages(t *testing.T) {
	f := newFixture(t)
	f.votes.On("Results", mock.Anything, "s1").Return(domain.VoteCounts{
		domain.VotePositive: 2, domain.VoteNeutral: 1, domain.VoteNegative: 0,
	}, nil).Once()

	w := f.do(http.MethodGet, "/api/rooms/r1/snapshots/s1/votes", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.VoteResultsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 67, resp.Data.Percentages[domain.VotePositive])
	assert.Equal(t, 33, resp.Data.Percentages[domain.VoteNeutral])
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrWrongPassword, http.StatusUnauthorized},
		{service.ErrSnapshotNotFound, http.StatusNotFound},
		{service.ErrAlreadyVoted, http.StatusConflict},
		{service.ErrUpstream, http.StatusBadGateway},
		{service.ErrTransport, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		httpHandler.HandleServiceError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}
