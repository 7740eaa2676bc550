package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"woori-codeshare/internal/domain"
)

// SnapshotRepository 通过外部后端实现 repository.SnapshotRepository。
type SnapshotRepository struct{ c *Client }

func NewSnapshotRepository(c *Client) *SnapshotRepository { return &SnapshotRepository{c: c} }

type snapshotPayload struct {
	SnapshotID  flexID    `json:"snapshotId"`
	ID          flexID    `json:"id"`
	RoomID      flexID    `json:"roomId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p snapshotPayload) toDomain(roomID string) domain.Snapshot {
	s := domain.Snapshot{
		ID:          firstID(p.SnapshotID, p.ID),
		RoomID:      firstID(p.RoomID),
		Title:       p.Title,
		Description: p.Description,
		Code:        p.Code,
		CreatedAt:   p.CreatedAt,
	}
	if s.RoomID == "" {
		s.RoomID = roomID
	}
	return s
}

// ListByRoom 返回房间的快照列表，按后端顺序。
func (r *SnapshotRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	var out []snapshotPayload
	if err := r.c.do(ctx, http.MethodGet, "/api/v1/snapshots/"+url.PathEscape(roomID)+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	snapshots := make([]domain.Snapshot, 0, len(out))
	for _, p := range out {
		snapshots = append(snapshots, p.toDomain(roomID))
	}
	return snapshots, nil
}

// Save 创建快照。后端未返回 ID 或时间时保留调用方的值。
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	body := map[string]string{
		"roomId":      snapshot.RoomID,
		"title":       snapshot.Title,
		"description": snapshot.Description,
		"code":        snapshot.Code,
	}
	var out snapshotPayload
	if err := r.c.do(ctx, http.MethodPost, "/api/v1/snapshots/", nil, body, &out); err != nil {
		return err
	}
	if id := firstID(out.SnapshotID, out.ID); id != "" {
		snapshot.ID = id
	}
	if !out.CreatedAt.IsZero() {
		snapshot.CreatedAt = out.CreatedAt
	}
	return nil
}
