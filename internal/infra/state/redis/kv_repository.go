package redisstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"woori-codeshare/internal/repository"
)

var _ repository.KVRepository = (*RedisKVRepository)(nil)

// RedisKVRepository 是 KVRepository 的 Redis 实现，多个客户端可以共享同一份本地状态。
type RedisKVRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisKVRepository 创建实例，keyPrefix 为空时使用 "kv:"。
func NewRedisKVRepository(client *redis.Client, keyPrefix string) *RedisKVRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisKVRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "kv:"
	}
	return &RedisKVRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: get kv %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKVRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set kv %q: %w", key, err)
	}
	return nil
}

func (r *RedisKVRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: delete kv %q: %w", key, err)
	}
	return nil
}
