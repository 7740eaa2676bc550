package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

// ActiveRoomSource 提供当前有连接的房间，由 Hub 实现
type ActiveRoomSource interface {
	GetActiveRoomIDs() []string
}

// SweepHandler 处理周期性的 code:sweep 任务，为所有活跃房间写检查点
type SweepHandler struct {
	rooms        ActiveRoomSource
	checkpointer Checkpointer
	roomTimeout  time.Duration
}

// NewSweepHandler 创建 Handler 实例
func NewSweepHandler(rooms ActiveRoomSource, checkpointer Checkpointer) *SweepHandler {
	if rooms == nil {
		panic("ActiveRoomSource cannot be nil for SweepHandler")
	}
	if checkpointer == nil {
		panic("Checkpointer cannot be nil for SweepHandler")
	}
	return &SweepHandler{rooms: rooms, checkpointer: checkpointer, roomTimeout: 30 * time.Second}
}

// ProcessTask 实现 asynq.Handler 接口。
// 单个房间失败只记录日志，不让整个周期任务重试。
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	roomIDs := h.rooms.GetActiveRoomIDs()
	if len(roomIDs) == 0 {
		logCtx.Debug("No active rooms found, skipping sweep.")
		return nil
	}
	logCtx.Infof("Found %d active rooms to checkpoint.", len(roomIDs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for _, roomID := range roomIDs {
		wg.Add(1)
		go func(rID string) {
			defer wg.Done()
			roomCtx, cancel := context.WithTimeout(ctx, h.roomTimeout)
			defer cancel()
			if err := h.checkpointer.Checkpoint(roomCtx, rID); err != nil {
				logCtx.WithError(err).WithField("room_id", rID).Error("Checkpoint failed for room")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(roomID)
	}
	wg.Wait()

	if failed > 0 {
		logCtx.Errorf("Sweep completed with %d failed rooms.", failed)
		return nil
	}
	logCtx.Info("Periodic code sweep completed successfully.")
	return nil
}
