package domain

import (
	"sort"
	"time"
)

// Snapshot 是某一时刻 CodeState 的不可变拷贝。
type Snapshot struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SortNewestFirst 按创建时间降序排列快照（原地排序，稳定）。
func SortNewestFirst(snapshots []Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
}
