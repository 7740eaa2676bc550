package domain

import "time"

// KVRecord 是客户端本地状态（投票去重、房间授权）的持久化记录。
type KVRecord struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名。
func (KVRecord) TableName() string { return "kv_records" }
