package kv_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"woori-codeshare/internal/client/kv"
	gormpersistence "woori-codeshare/internal/infra/persistence/gorm"
	"woori-codeshare/internal/infra/setup"
	redisstate "woori-codeshare/internal/infra/state/redis"
)

func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, setup.MigrateKV(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]kv.Store{
		"memory": kv.NewMemoryStore(),
		"gorm":   gormpersistence.NewGormKVRepository(db),
		"redis":  redisstate.NewRedisKVRepository(client, "kv:"),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.VoteKey("v1", "s1")

			_, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, key, "POSITIVE"))
			require.NoError(t, s.Set(ctx, key, "NEUTRAL"))
			v, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "NEUTRAL", v)

			require.NoError(t, s.Delete(ctx, key))
			_, ok, err = s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "vote:v1:s1", kv.VoteKey("v1", "s1"))
	assert.Equal(t, "auth:r1", kv.AuthKey("r1"))
	assert.Equal(t, "room:r1:creator", kv.CreatorKey("r1"))
}
