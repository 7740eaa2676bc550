package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

var _ repository.KVRepository = (*GormKVRepository)(nil)

// GormKVRepository 是 KVRepository 接口的 GORM 实现，客户端用 sqlite 文件保存本地状态。
type GormKVRepository struct {
	db *gorm.DB
}

// NewGormKVRepository 创建 GormKVRepository 实例
func NewGormKVRepository(db *gorm.DB) *GormKVRepository {
	if db == nil {
		panic("database connection cannot be nil for GormKVRepository")
	}
	return &GormKVRepository{db: db}
}

func (r *GormKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var rec domain.KVRecord
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("gorm: get kv %q: %w", key, err)
	}
	return rec.Value, true, nil
}

func (r *GormKVRepository) Set(ctx context.Context, key, value string) error {
	rec := domain.KVRecord{Key: key, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("gorm: set kv %q: %w", key, translateError(err))
	}
	return nil
}

func (r *GormKVRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).Delete(&domain.KVRecord{}).Error; err != nil {
		return fmt.Errorf("gorm: delete kv %q: %w", key, err)
	}
	return nil
}
