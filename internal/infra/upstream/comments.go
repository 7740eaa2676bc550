package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"woori-codeshare/internal/domain"
)

// CommentRepository 通过外部后端实现 repository.CommentRepository。
type CommentRepository struct{ c *Client }

func NewCommentRepository(c *Client) *CommentRepository { return &CommentRepository{c: c} }

type commentPayload struct {
	CommentID       flexID    `json:"commentId"`
	ID              flexID    `json:"id"`
	SnapshotID      flexID    `json:"snapshotId"`
	ParentCommentID flexID    `json:"parentCommentId"`
	Content         string    `json:"content"`
	Solved          bool      `json:"solved"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (p commentPayload) toDomain() domain.Comment {
	c := domain.Comment{
		ID:         firstID(p.CommentID, p.ID),
		SnapshotID: string(p.SnapshotID),
		Content:    p.Content,
		Solved:     p.Solved,
		CreatedAt:  p.CreatedAt,
	}
	if p.ParentCommentID != "" {
		parent := string(p.ParentCommentID)
		c.ParentID = &parent
	}
	return c
}

func commentPath(id string) string { return "/api/v1/comments/" + url.PathEscape(id) }

// ListBySnapshot 返回快照下的全部评论（平铺）。
func (r *CommentRepository) ListBySnapshot(ctx context.Context, snapshotID string) ([]domain.Comment, error) {
	var out []commentPayload
	if err := r.c.do(ctx, http.MethodGet, "/api/v1/snapshots/"+url.PathEscape(snapshotID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(out))
	for _, p := range out {
		c := p.toDomain()
		if c.SnapshotID == "" {
			c.SnapshotID = snapshotID
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// Create 发表评论，后端分配的字段回填到 comment。
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	body := map[string]any{"snapshotId": comment.SnapshotID, "content": comment.Content}
	if comment.IsReply() {
		body["parentCommentId"] = *comment.ParentID
	}
	var out commentPayload
	if err := r.c.do(ctx, http.MethodPost, "/api/v1/comments", nil, body, &out); err != nil {
		return err
	}
	if id := firstID(out.CommentID, out.ID); id != "" {
		comment.ID = id
	}
	if !out.CreatedAt.IsZero() {
		comment.CreatedAt = out.CreatedAt
	}
	return nil
}

// UpdateContent 修改评论内容。
func (r *CommentRepository) UpdateContent(ctx context.Context, commentID, content string) (*domain.Comment, error) {
	var out commentPayload
	body := map[string]string{"commentId": commentID, "content": content}
	if err := r.c.do(ctx, http.MethodPatch, commentPath(commentID)+"/update", nil, body, &out); err != nil {
		return nil, err
	}
	c := out.toDomain()
	if c.ID == "" {
		c.ID = commentID
		c.Content = content
	}
	return &c, nil
}

// Delete 删除评论。
func (r *CommentRepository) Delete(ctx context.Context, commentID string) error {
	return r.c.do(ctx, http.MethodDelete, commentPath(commentID), nil, nil, nil)
}

// SetSolved 设置解决状态。
func (r *CommentRepository) SetSolved(ctx context.Context, commentID string, solved bool) (*domain.Comment, error) {
	var out commentPayload
	body := map[string]bool{"solved": solved}
	if err := r.c.do(ctx, http.MethodPatch, commentPath(commentID)+"/resolve", nil, body, &out); err != nil {
		return nil, err
	}
	c := out.toDomain()
	if c.ID == "" {
		c.ID = commentID
	}
	c.Solved = solved
	return &c, nil
}
