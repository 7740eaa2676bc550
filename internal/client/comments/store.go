package comments

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
)

// 发表成功的提示语，网关没有返回时使用
const (
	MsgQuestionPosted = "Question posted successfully."
	MsgReplyPosted    = "Reply posted successfully."
)

var (
	// ErrEditRefused 只能修改没有回复的问题
	ErrEditRefused = errors.New("only a question without replies can be edited")
	// ErrNoNesting 不能回复回复
	ErrNoNesting = errors.New("replies cannot be replied to")
	// ErrEmptyContent 内容为空
	ErrEmptyContent = errors.New("comment content is required")
	// ErrNotLoaded 尚未加载任何快照的评论
	ErrNotLoaded = errors.New("no snapshot comments loaded")
	// ErrNotFound 本地没有该评论
	ErrNotFound = errors.New("comment not found")
)

// Backend 评论的远端接口，由 api.Client 实现
type Backend interface {
	ListComments(ctx context.Context, roomID, snapshotID string) ([]domain.Thread, error)
	CreateComment(ctx context.Context, roomID, snapshotID, content string, parentID *string) (domain.Comment, string, error)
	UpdateComment(ctx context.Context, roomID, snapshotID, commentID, content string) (domain.Comment, error)
	DeleteComment(ctx context.Context, roomID, snapshotID, commentID string) error
	ResolveComment(ctx context.Context, roomID, snapshotID, commentID string, solved bool) (domain.Comment, error)
}

// Store 缓存当前快照的评论线程。写操作成功后重新加载，失败时本地状态不变。
type Store struct {
	backend Backend
	roomID  string
	log     *logrus.Entry

	mu         sync.RWMutex
	snapshotID string
	threads    []domain.Thread
}

func NewStore(backend Backend, roomID string) *Store {
	return &Store{
		backend: backend,
		roomID:  roomID,
		log:     logrus.WithFields(logrus.Fields{"component": "comment_store", "room_id": roomID}),
	}
}

// Load 加载快照的评论，并把它设为当前快照
func (s *Store) Load(ctx context.Context, snapshotID string) error {
	threads, err := s.backend.ListComments(ctx, s.roomID, snapshotID)
	if err != nil {
		s.log.WithError(err).WithField("snapshot_id", snapshotID).Warn("Failed to load comments")
		return err
	}
	s.mu.Lock()
	s.snapshotID = snapshotID
	s.threads = threads
	s.mu.Unlock()
	return nil
}

// Threads 返回当前快照的评论线程
func (s *Store) Threads() []domain.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Thread, len(s.threads))
	for i, t := range s.threads {
		t.Replies = append([]domain.Comment(nil), t.Replies...)
		out[i] = t
	}
	return out
}

func (s *Store) current() (string, []domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshotID == "" {
		return "", nil, ErrNotLoaded
	}
	return s.snapshotID, s.threads, nil
}

// Post 发表问题（parentID 为 nil）或回复，返回新评论和提示语
func (s *Store) Post(ctx context.Context, content string, parentID *string) (domain.Comment, string, error) {
	snapshotID, threads, err := s.current()
	if err != nil {
		return domain.Comment{}, "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Comment{}, "", ErrEmptyContent
	}
	if parentID != nil {
		parent, _, ok := domain.FindComment(threads, *parentID)
		if !ok {
			return domain.Comment{}, "", ErrNotFound
		}
		if parent.IsReply() {
			return domain.Comment{}, "", ErrNoNesting
		}
	}

	comment, msg, err := s.backend.CreateComment(ctx, s.roomID, snapshotID, content, parentID)
	if err != nil {
		return domain.Comment{}, "", err
	}
	if msg == "" {
		msg = MsgQuestionPosted
		if parentID != nil {
			msg = MsgReplyPosted
		}
	}
	s.reload(ctx, snapshotID)
	return comment, msg, nil
}

// Edit 修改问题内容。回复和已有回复的问题在本地直接拒绝，不访问网络。
func (s *Store) Edit(ctx context.Context, commentID, content string) (domain.Comment, error) {
	snapshotID, threads, err := s.current()
	if err != nil {
		return domain.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Comment{}, ErrEmptyContent
	}
	target, thread, ok := domain.FindComment(threads, commentID)
	if !ok {
		return domain.Comment{}, ErrNotFound
	}
	if target.IsReply() || !thread.Editable() {
		return domain.Comment{}, ErrEditRefused
	}

	updated, err := s.backend.UpdateComment(ctx, s.roomID, snapshotID, commentID, content)
	if err != nil {
		return domain.Comment{}, err
	}
	s.reload(ctx, snapshotID)
	return updated, nil
}

// Delete 删除评论。回复不会级联删除，父问题消失后不再显示。
func (s *Store) Delete(ctx context.Context, commentID string) error {
	snapshotID, _, err := s.current()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteComment(ctx, s.roomID, snapshotID, commentID); err != nil {
		return err
	}
	s.reload(ctx, snapshotID)
	return nil
}

// SetResolved 设置解决状态，不影响内容
func (s *Store) SetResolved(ctx context.Context, commentID string, solved bool) (domain.Comment, error) {
	snapshotID, _, err := s.current()
	if err != nil {
		return domain.Comment{}, err
	}
	updated, err := s.backend.ResolveComment(ctx, s.roomID, snapshotID, commentID, solved)
	if err != nil {
		return domain.Comment{}, err
	}
	s.reload(ctx, snapshotID)
	return updated, nil
}

// reload 写操作之后刷新，失败只记录日志，保留旧缓存
func (s *Store) reload(ctx context.Context, snapshotID string) {
	threads, err := s.backend.ListComments(ctx, s.roomID, snapshotID)
	if err != nil {
		s.log.WithError(err).WithField("snapshot_id", snapshotID).Warn("Failed to reload comments after write")
		return
	}
	s.mu.Lock()
	if s.snapshotID == snapshotID {
		s.threads = threads
	}
	s.mu.Unlock()
}
