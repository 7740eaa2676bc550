package domain

import "time"

// DefaultLanguage 是无法识别代码语言时使用的标签。
const DefaultLanguage = "plaintext"

// CodeState 是房间当前唯一的实时代码文档。
// 每个房间任意时刻只有一个 CodeState，整篇替换，最后写入者胜出。
type CodeState struct {
	RoomID    string    `json:"roomId"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsEmpty 判断代码是否为空。
func (c CodeState) IsEmpty() bool { return c.Code == "" }

// CodeCheckpoint 是 CodeState 落库的检查点，用于 Redis 丢失状态后的恢复。
type CodeCheckpoint struct {
	RoomID    string    `gorm:"primaryKey;size:64"`
	Code      string    `gorm:"type:longtext;not null"`
	Language  string    `gorm:"size:32"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

// ToState 转换为 CodeState。
func (c CodeCheckpoint) ToState() CodeState {
	return CodeState{RoomID: c.RoomID, Code: c.Code, Language: c.Language, UpdatedAt: c.UpdatedAt}
}

// TableName 指定表名。
func (CodeCheckpoint) TableName() string { return "code_states" }
