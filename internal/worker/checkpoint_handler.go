package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/tasks"
)

// Checkpointer 将房间 CodeState 写入数据库，由 CollaborationService 实现
type Checkpointer interface {
	Checkpoint(ctx context.Context, roomID string) error
}

// CheckpointHandler 处理 code:checkpoint 任务
type CheckpointHandler struct {
	checkpointer Checkpointer
}

// NewCheckpointHandler 创建 Handler 实例
func NewCheckpointHandler(checkpointer Checkpointer) *CheckpointHandler {
	if checkpointer == nil {
		panic("Checkpointer cannot be nil for CheckpointHandler")
	}
	return &CheckpointHandler{checkpointer: checkpointer}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *CheckpointHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	logCtx.Debug("Processing code checkpoint task...")

	payload, err := tasks.ParseCodeCheckpointPayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Invalid checkpoint payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.checkpointer.Checkpoint(ctx, payload.RoomID); err != nil {
		logCtx.WithError(err).WithField("room_id", payload.RoomID).Error("Code checkpoint failed")
		return fmt.Errorf("checkpoint room %s: %w", payload.RoomID, err)
	}

	logCtx.WithField("room_id", payload.RoomID).Info("Code checkpoint task processed successfully")
	return nil
}

// taskLogger 带上任务元数据的日志条目。直接构造的任务没有 ResultWriter。
func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}
