package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeCodeCheckpoint = "code:checkpoint" // 将房间 CodeState 落库
	TypeCodeSweep      = "code:sweep"      // 周期性检查所有活跃房间
)

// CodeCheckpointPayload 是检查点任务的数据
type CodeCheckpointPayload struct {
	RoomID string `json:"room_id"`
}

// NewCodeCheckpointTask 创建检查点任务。
// TaskID 按房间固定，短时间内的多次编辑只会排队一次。
func NewCodeCheckpointTask(roomID string) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(CodeCheckpointPayload{RoomID: roomID})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.TaskID(CheckpointTaskID(roomID)),
		asynq.MaxRetry(3),
		asynq.Queue("default"),
	}
	return asynq.NewTask(TypeCodeCheckpoint, payload), opts, nil
}

// CheckpointTaskID 返回房间检查点任务的 ID。
func CheckpointTaskID(roomID string) string { return "checkpoint:" + roomID }

// ParseCodeCheckpointPayload 解析检查点任务
func ParseCodeCheckpointPayload(t *asynq.Task) (CodeCheckpointPayload, error) {
	var p CodeCheckpointPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal checkpoint payload: %w", err)
	}
	if p.RoomID == "" {
		return p, fmt.Errorf("checkpoint payload missing room_id")
	}
	return p, nil
}

// NewCodeSweepTask 创建周期性扫描任务（无负载）
func NewCodeSweepTask() *asynq.Task {
	return asynq.NewTask(TypeCodeSweep, nil)
}
