package repository

import (
	"context"

	"woori-codeshare/internal/domain"
)

// CommentRepository 定义了快照下评论的读写。
type CommentRepository interface {
	ListBySnapshot(ctx context.Context, snapshotID string) ([]domain.Comment, error)
	Create(ctx context.Context, comment *domain.Comment) error
	UpdateContent(ctx context.Context, commentID, content string) (*domain.Comment, error)
	Delete(ctx context.Context, commentID string) error
	SetSolved(ctx context.Context, commentID string, solved bool) (*domain.Comment, error)
}
