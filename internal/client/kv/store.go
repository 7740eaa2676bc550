package kv

import (
	"context"
	"sync"
)

// Store 是客户端本地状态的键值存储。
// infra 中的 GormKVRepository 和 RedisKVRepository 都满足该接口。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// VoteKey 投票去重记录，值为投出的 VoteType
func VoteKey(voterID, snapshotID string) string { return "vote:" + voterID + ":" + snapshotID }

// AuthKey 房间通行令牌
func AuthKey(roomID string) string { return "auth:" + roomID }

// CreatorKey 房间创建者标记
func CreatorKey(roomID string) string { return "room:" + roomID + ":creator" }

// VoterIDKey 本地投票者 ID
const VoterIDKey = "voter:id"

// MemoryStore 进程内实现，进程退出后丢失
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
