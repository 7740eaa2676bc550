package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"woori-codeshare/internal/client/api"
	"woori-codeshare/internal/client/kv"
	gormpersistence "woori-codeshare/internal/infra/persistence/gorm"
	"woori-codeshare/internal/infra/setup"
	redisstate "woori-codeshare/internal/infra/state/redis"
)

// 本地状态驱动
const (
	StateSQLite = "sqlite"
	StateRedis  = "redis"
	StateMemory = "memory"
)

var (
	memoryMu    sync.Mutex
	memoryStore *kv.MemoryStore
)

// env 是一次命令执行所需的依赖
type env struct {
	api   *api.Client
	store kv.Store
	close func()
}

func openEnv() (*env, error) {
	store, closeFn, err := openStore()
	if err != nil {
		return nil, err
	}
	client := api.NewClient(viper.GetString("server.url"), viper.GetDuration("server.timeout"))
	return &env{api: client, store: store, close: closeFn}, nil
}

// openStore 按 state.driver 打开本地 KV 存储
func openStore() (kv.Store, func(), error) {
	switch driver := viper.GetString("state.driver"); driver {
	case StateSQLite, "":
		path := viper.GetString("state.path")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create state dir: %w", err)
			}
		}
		db, err := setup.InitDB(setup.DBConfig{Driver: setup.DriverSQLite, Path: path})
		if err != nil {
			return nil, nil, err
		}
		if err := setup.MigrateKV(db); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return gormpersistence.NewGormKVRepository(db), closeFn, nil
	case StateRedis:
		client, err := setup.InitRedis(viper.GetString("state.redis_addr"), viper.GetString("state.redis_password"), viper.GetInt("state.redis_db"))
		if err != nil {
			return nil, nil, err
		}
		return redisstate.NewRedisKVRepository(client, "roomctl:"), func() { _ = client.Close() }, nil
	case StateMemory:
		// 进程内共享，退出即丢失
		memoryMu.Lock()
		defer memoryMu.Unlock()
		if memoryStore == nil {
			memoryStore = kv.NewMemoryStore()
		}
		return memoryStore, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported state.driver %q", driver)
	}
}

// authorize 读取保存的房间通行令牌
func (e *env) authorize(ctx context.Context, roomID string) error {
	token, ok, err := e.store.Get(ctx, kv.AuthKey(roomID))
	if err != nil {
		return err
	}
	if !ok || token == "" {
		return fmt.Errorf("not authorized for room %s, run `roomctl room enter %s` first", roomID, roomID)
	}
	e.api.SetToken(roomID, token)
	return nil
}

// voterID 返回本地投票者 ID，首次使用时生成
func (e *env) voterID(ctx context.Context) (string, error) {
	id, ok, err := e.store.Get(ctx, kv.VoterIDKey)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := e.store.Set(ctx, kv.VoterIDKey, id); err != nil {
		return "", fmt.Errorf("persist voter id: %w", err)
	}
	return id, nil
}

// userName 返回显示名，未配置时生成访客名
func userName() string {
	if name := viper.GetString("user.name"); name != "" {
		return name
	}
	return "guest-" + uuid.NewString()[:8]
}
