package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"woori-codeshare/internal/domain"
)

// MigrateDB 迁移服务端使用的表（CodeState 检查点）。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(&domain.CodeCheckpoint{}); err != nil {
		logrus.Errorf("Failed to auto-migrate code checkpoints: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

// MigrateKV 迁移客户端本地状态表。
func MigrateKV(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(&domain.KVRecord{}); err != nil {
		return fmt.Errorf("failed to migrate kv_records: %w", err)
	}
	return nil
}
