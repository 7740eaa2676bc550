package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// 评论发表成功的提示语
const (
	MsgQuestionPosted = "Question posted successfully."
	MsgReplyPosted    = "Reply posted successfully."
)

// CommentService 负责快照下的两层评论。
type CommentService struct {
	commentRepo repository.CommentRepository
}

// NewCommentService 创建 CommentService 实例。
func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	if commentRepo == nil {
		panic("CommentRepository cannot be nil for CommentService")
	}
	return &CommentService{commentRepo: commentRepo}
}

// List 返回快照的评论线程。
func (s *CommentService) List(ctx context.Context, snapshotID string) ([]domain.Thread, error) {
	if snapshotID == "" {
		return nil, ErrInvalidInput
	}
	comments, err := s.commentRepo.ListBySnapshot(ctx, snapshotID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "list_comments", "snapshot_id": snapshotID}).WithError(err).Error("Failed to list comments")
		return nil, mapUpstreamError(err, ErrSnapshotNotFound)
	}
	return domain.BuildThreads(comments), nil
}

// Create 发表问题或回复，返回评论和提示语。只能回复问题，不能回复回复。
func (s *CommentService) Create(ctx context.Context, snapshotID, content string, parentID *string) (*domain.Comment, string, error) {
	content = strings.TrimSpace(content)
	if snapshotID == "" || content == "" {
		return nil, "", ErrInvalidInput
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "create_comment", "snapshot_id": snapshotID})

	if parentID != nil {
		threads, err := s.List(ctx, snapshotID)
		if err != nil {
			return nil, "", err
		}
		parent, _, ok := domain.FindComment(threads, *parentID)
		if !ok {
			return nil, "", ErrCommentNotFound
		}
		if parent.IsReply() {
			return nil, "", ErrNestedReply
		}
	}

	comment := &domain.Comment{SnapshotID: snapshotID, ParentID: parentID, Content: content, CreatedAt: time.Now()}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		logCtx.WithError(err).Error("Failed to create comment")
		return nil, "", mapUpstreamError(err, ErrSnapshotNotFound)
	}
	msg := MsgQuestionPosted
	if comment.IsReply() {
		msg = MsgReplyPosted
	}
	logCtx.WithField("comment_id", comment.ID).Info("Comment created")
	return comment, msg, nil
}

// Update 修改评论内容。只允许修改没有回复的问题，否则返回 ErrCommentNotEditable，内容不变。
func (s *CommentService) Update(ctx context.Context, snapshotID, commentID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if snapshotID == "" || commentID == "" || content == "" {
		return nil, ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "update_comment", "snapshot_id": snapshotID, "comment_id": commentID})

	threads, err := s.List(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	target, thread, ok := domain.FindComment(threads, commentID)
	if !ok {
		return nil, ErrCommentNotFound
	}
	if target.IsReply() || !thread.Editable() {
		logCtx.Info("Comment edit refused")
		return nil, ErrCommentNotEditable
	}

	updated, err := s.commentRepo.UpdateContent(ctx, commentID, content)
	if err != nil {
		logCtx.WithError(err).Error("Failed to update comment")
		return nil, mapUpstreamError(err, ErrCommentNotFound)
	}
	// 后端未返回完整记录时以本地记录为准
	if updated.SnapshotID == "" {
		merged := target
		merged.Content = content
		updated = &merged
	}
	return updated, nil
}

// Delete 删除评论。回复不会被级联删除，父问题消失后由 BuildThreads 隐藏。
func (s *CommentService) Delete(ctx context.Context, commentID string) error {
	if commentID == "" {
		return ErrInvalidInput
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		logrus.WithFields(logrus.Fields{"operation": "delete_comment", "comment_id": commentID}).WithError(err).Error("Failed to delete comment")
		return mapUpstreamError(err, ErrCommentNotFound)
	}
	return nil
}

// Resolve 设置评论的解决状态，与内容无关。
func (s *CommentService) Resolve(ctx context.Context, commentID string, solved bool) (*domain.Comment, error) {
	if commentID == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.commentRepo.SetSolved(ctx, commentID, solved)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "resolve_comment", "comment_id": commentID}).WithError(err).Error("Failed to resolve comment")
		return nil, mapUpstreamError(err, ErrCommentNotFound)
	}
	return c, nil
}
