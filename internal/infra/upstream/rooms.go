package upstream

import (
	"context"
	"net/http"
	"net/url"

	"woori-codeshare/internal/domain"
)

// RoomRepository 通过外部后端实现 repository.RoomRepository。
type RoomRepository struct{ c *Client }

func NewRoomRepository(c *Client) *RoomRepository { return &RoomRepository{c: c} }

type roomPayload struct {
	RoomID flexID `json:"roomId"`
	UUID   flexID `json:"uuid"`
	ID     flexID `json:"id"`
	Title  string `json:"title"`
}

// Create 创建房间并返回房间 ID。
func (r *RoomRepository) Create(ctx context.Context, title, password string) (string, error) {
	var out roomPayload
	body := map[string]string{"title": title, "password": password}
	if err := r.c.do(ctx, http.MethodPost, "/api/v1/rooms", nil, body, &out); err != nil {
		return "", err
	}
	return firstID(out.RoomID, out.UUID, out.ID), nil
}

// Enter 校验房间密码。
func (r *RoomRepository) Enter(ctx context.Context, roomID, password string) (*domain.Room, error) {
	var out roomPayload
	q := url.Values{"password": {password}}
	if err := r.c.do(ctx, http.MethodPost, "/api/v1/rooms/enter/"+url.PathEscape(roomID), q, nil, &out); err != nil {
		return nil, err
	}
	return &domain.Room{ID: roomID, Title: out.Title, Authorized: true}, nil
}
