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

// GormCodeRepository 是 CodeRepository 接口的 GORM 实现
type GormCodeRepository struct {
	db *gorm.DB
}

// NewGormCodeRepository 创建 GormCodeRepository 实例
func NewGormCodeRepository(db *gorm.DB) *GormCodeRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCodeRepository")
	}
	return &GormCodeRepository{db: db}
}

// FindByRoomID 查找房间的检查点
func (r *GormCodeRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.CodeCheckpoint, error) {
	var cp domain.CodeCheckpoint
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find code checkpoint for room %s: %w", roomID, err)
	}
	return &cp, nil
}

// Save 插入或覆盖检查点
func (r *GormCodeRepository) Save(ctx context.Context, cp *domain.CodeCheckpoint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "language", "updated_at"}),
		}).
		Create(cp).Error
	if err != nil {
		return fmt.Errorf("gorm: save code checkpoint for room %s: %w", cp.RoomID, translateError(err))
	}
	return nil
}

// ListRoomIDs 返回所有已有检查点的房间 ID
func (r *GormCodeRepository) ListRoomIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.CodeCheckpoint{}).Order("room_id").Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list checkpoint rooms: %w", err)
	}
	return ids, nil
}
