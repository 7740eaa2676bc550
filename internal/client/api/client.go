package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
)

// Client 是网关 REST API 的客户端。房间令牌按房间保存，访问房间接口时自动携带。
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry

	mu     sync.RWMutex
	tokens map[string]string
}

// NewClient 创建客户端，baseURL 形如 http://localhost:8080。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logrus.WithField("component", "api_client"),
		tokens:  make(map[string]string),
	}
}

// SetToken 保存房间通行令牌
func (c *Client) SetToken(roomID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[roomID] = token
}

// Token 返回房间通行令牌
func (c *Client) Token(roomID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[roomID]
}

// WebSocketURL 返回房间实时通道地址，令牌通过查询参数传递
func (c *Client) WebSocketURL(roomID, user string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{}
	if user != "" {
		q.Set("user", user)
	}
	if token := c.Token(roomID); token != "" {
		q.Set("token", token)
	}
	target := base + "/ws/room/" + url.PathEscape(roomID)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}

func roomPath(roomID string, parts ...string) string {
	p := "/api/rooms/" + url.PathEscape(roomID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	roomID string // 非空时携带该房间的令牌
	header map[string]string
}

// do 发送请求并把响应体解码到 out（out 可以为 nil）。
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("gateway: marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.roomID != "" {
		if token := c.Token(r.roomID); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": r.method, "path": r.path}).WithError(err).Debug("Gateway request failed")
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var body dto.ErrorResponse
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}

// dataEnvelope 列表和单个资源的响应格式
type dataEnvelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// CreateRoom 创建房间并返回房间 ID
func (c *Client) CreateRoom(ctx context.Context, title, password string) (string, error) {
	var resp dto.CreateRoomResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/rooms",
		body: dto.CreateRoomRequest{Title: title, Password: password}}, &resp)
	return resp.RoomID, err
}

// EnterRoom 校验房间密码，成功后保存令牌
func (c *Client) EnterRoom(ctx context.Context, roomID, password string) (dto.EnterRoomResponse, error) {
	var resp dto.EnterRoomResponse
	err := c.do(ctx, request{method: http.MethodPost, path: roomPath(roomID, "participants"),
		query: url.Values{"password": {password}}}, &resp)
	if err == nil && resp.Token != "" {
		c.SetToken(roomID, resp.Token)
	}
	return resp, err
}

// CurrentCode 读取房间当前的 CodeState，只在会话开始时调用
func (c *Client) CurrentCode(ctx context.Context, roomID string) (domain.CodeState, error) {
	var resp dataEnvelope[domain.CodeState]
	err := c.do(ctx, request{method: http.MethodGet, path: roomPath(roomID, "code"), roomID: roomID}, &resp)
	return resp.Data, err
}

func (c *Client) ListSnapshots(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	var resp dataEnvelope[[]domain.Snapshot]
	err := c.do(ctx, request{method: http.MethodGet, path: roomPath(roomID, "snapshots"), roomID: roomID}, &resp)
	return resp.Data, err
}

func (c *Client) CreateSnapshot(ctx context.Context, roomID string, req dto.CreateSnapshotRequest) (domain.Snapshot, error) {
	req.RoomID = roomID
	var resp dataEnvelope[domain.Snapshot]
	err := c.do(ctx, request{method: http.MethodPost, path: roomPath(roomID, "snapshots"), roomID: roomID, body: req}, &resp)
	return resp.Data, err
}

func (c *Client) ListComments(ctx context.Context, roomID, snapshotID string) ([]domain.Thread, error) {
	var resp dataEnvelope[[]domain.Thread]
	err := c.do(ctx, request{method: http.MethodGet, path: roomPath(roomID, "snapshots", snapshotID, "comments"), roomID: roomID}, &resp)
	return resp.Data, err
}

// CreateComment 返回新评论和网关给出的提示语
func (c *Client) CreateComment(ctx context.Context, roomID, snapshotID, content string, parentID *string) (domain.Comment, string, error) {
	var resp dto.CommentResponse
	err := c.do(ctx, request{method: http.MethodPost, path: roomPath(roomID, "snapshots", snapshotID, "comments"), roomID: roomID,
		body: dto.CreateCommentRequest{Content: content, ParentCommentID: parentID}}, &resp)
	return resp.Data, resp.Message, err
}

func (c *Client) UpdateComment(ctx context.Context, roomID, snapshotID, commentID, content string) (domain.Comment, error) {
	var resp dto.CommentResponse
	err := c.do(ctx, request{method: http.MethodPatch, path: roomPath(roomID, "snapshots", snapshotID, "comments", commentID), roomID: roomID,
		body: dto.UpdateCommentRequest{Content: content}}, &resp)
	return resp.Data, err
}

func (c *Client) DeleteComment(ctx context.Context, roomID, snapshotID, commentID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: roomPath(roomID, "snapshots", snapshotID, "comments", commentID), roomID: roomID}, nil)
}

func (c *Client) ResolveComment(ctx context.Context, roomID, snapshotID, commentID string, solved bool) (domain.Comment, error) {
	var resp dto.CommentResponse
	err := c.do(ctx, request{method: http.MethodPatch, path: roomPath(roomID, "snapshots", snapshotID, "comments", commentID, "resolve"), roomID: roomID,
		body: dto.ResolveCommentRequest{Solved: &solved}}, &resp)
	return resp.Data, err
}

func (c *Client) VoteResults(ctx context.Context, roomID, snapshotID string) (domain.VoteCounts, error) {
	var resp dataEnvelope[dto.VoteResultsResponse]
	err := c.do(ctx, request{method: http.MethodGet, path: roomPath(roomID, "snapshots", snapshotID, "votes"), roomID: roomID}, &resp)
	return resp.Data.VoteCounts, err
}

func (c *Client) CastVote(ctx context.Context, roomID, snapshotID, voterID string, voteType domain.VoteType) error {
	return c.do(ctx, request{method: http.MethodPost, path: roomPath(roomID, "snapshots", snapshotID, "votes"), roomID: roomID,
		body:   dto.CastVoteRequest{VoteType: string(voteType)},
		header: map[string]string{dto.VoterHeader: voterID}}, nil)
}
