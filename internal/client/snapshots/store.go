package snapshots

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
)

// ErrEmptyCode 当前 CodeState 为空，不能创建快照
var ErrEmptyCode = errors.New("cannot snapshot an empty code state")

// Backend 快照的持久化接口，由 api.Client 实现
type Backend interface {
	ListSnapshots(ctx context.Context, roomID string) ([]domain.Snapshot, error)
	CreateSnapshot(ctx context.Context, roomID string, req dto.CreateSnapshotRequest) (domain.Snapshot, error)
}

// Store 是房间快照列表的本地视图，最新的在前。快照一旦创建不再修改。
type Store struct {
	backend Backend
	roomID  string
	log     *logrus.Entry

	mu   sync.RWMutex
	list []domain.Snapshot
}

func NewStore(backend Backend, roomID string) *Store {
	return &Store{
		backend: backend,
		roomID:  roomID,
		log:     logrus.WithFields(logrus.Fields{"component": "snapshot_store", "room_id": roomID}),
	}
}

// Refresh 从网关重新加载快照列表
func (s *Store) Refresh(ctx context.Context) error {
	list, err := s.backend.ListSnapshots(ctx, s.roomID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to refresh snapshots")
		return err
	}
	list = append([]domain.Snapshot(nil), list...)
	domain.SortNewestFirst(list)

	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
	return nil
}

// Create 用给定代码创建快照并放到列表最前面。
// 标题为空时使用 "Snapshot n"，n 为当前已知快照数加一。
func (s *Store) Create(ctx context.Context, code, title, description string) (domain.Snapshot, error) {
	if code == "" {
		return domain.Snapshot{}, ErrEmptyCode
	}
	if title == "" {
		title = "Snapshot " + strconv.Itoa(s.Len()+1)
	}

	created, err := s.backend.CreateSnapshot(ctx, s.roomID, dto.CreateSnapshotRequest{
		RoomID:      s.roomID,
		Title:       title,
		Description: description,
		Code:        code,
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to create snapshot")
		return domain.Snapshot{}, err
	}

	now := time.Now()
	if created.ID == "" {
		created.ID = strconv.FormatInt(now.UnixMilli(), 10)
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.RoomID = s.roomID
	// 快照内容以本地捕获的为准
	created.Code = code
	if created.Title == "" {
		created.Title = title
	}

	s.mu.Lock()
	s.list = append([]domain.Snapshot{created}, s.list...)
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"snapshot_id": created.ID, "title": created.Title}).Info("Snapshot created")
	return created, nil
}

// List 返回快照列表的拷贝
func (s *Store) List() []domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Snapshot(nil), s.list...)
}

// At 返回第 i 个快照（0 为最新）
func (s *Store) At(i int) (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.list) {
		return domain.Snapshot{}, false
	}
	return s.list[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}
