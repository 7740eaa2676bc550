package gormpersistence

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.CodeCheckpoint{}, &domain.KVRecord{}))
	return db
}

func TestCodeRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCodeRepository(newTestDB(t))

	_, err := repo.FindByRoomID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Save(ctx, &domain.CodeCheckpoint{RoomID: "r1", Code: "a", Language: "go"}))
	require.NoError(t, repo.Save(ctx, &domain.CodeCheckpoint{RoomID: "r1", Code: "b", Language: "python"}))
	require.NoError(t, repo.Save(ctx, &domain.CodeCheckpoint{RoomID: "r0", Code: "x"}))

	cp, err := repo.FindByRoomID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "b", cp.Code)
	assert.Equal(t, "python", cp.Language)

	ids, err := repo.ListRoomIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r0", "r1"}, ids)
}

func TestKVRepository_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormKVRepository(newTestDB(t))

	_, ok, err := repo.Get(ctx, "vote:alice:7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "vote:alice:7", "POSITIVE"))
	require.NoError(t, repo.Set(ctx, "vote:alice:7", "NEGATIVE"))
	v, ok, err := repo.Get(ctx, "vote:alice:7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "NEGATIVE", v)

	require.NoError(t, repo.Delete(ctx, "vote:alice:7"))
	_, ok, err = repo.Get(ctx, "vote:alice:7")
	require.NoError(t, err)
	assert.False(t, ok)
}
