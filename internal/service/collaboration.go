package service

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/langdetect"
	"woori-codeshare/internal/repository"
	"woori-codeshare/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 的子集，便于测试替换。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CollaborationService 维护房间的 CodeState：整篇替换，最后写入者胜出。
type CollaborationService struct {
	stateRepo       repository.StateRepository
	codeRepo        repository.CodeRepository
	enqueuer        TaskEnqueuer
	checkpointDelay time.Duration
}

// NewCollaborationService 创建 CollaborationService 实例。enqueuer 可以为 nil（不做检查点）。
func NewCollaborationService(stateRepo repository.StateRepository, codeRepo repository.CodeRepository, enqueuer TaskEnqueuer, checkpointDelay time.Duration) *CollaborationService {
	if stateRepo == nil || codeRepo == nil {
		panic("StateRepository and CodeRepository cannot be nil for CollaborationService")
	}
	if checkpointDelay <= 0 {
		checkpointDelay = 5 * time.Second
	}
	return &CollaborationService{stateRepo: stateRepo, codeRepo: codeRepo, enqueuer: enqueuer, checkpointDelay: checkpointDelay}
}

// UpdateCode 覆盖房间 CodeState 并通过房间频道广播，origin 是发起连接的 ID。
func (s *CollaborationService) UpdateCode(ctx context.Context, roomID, origin, code string) (*domain.CodeState, error) {
	if roomID == "" {
		return nil, ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "update_code", "room_id": roomID, "origin": origin})

	state := domain.CodeState{
		RoomID:    roomID,
		Code:      code,
		Language:  langdetect.Detect(code),
		UpdatedAt: time.Now(),
	}
	if err := s.stateRepo.SetCode(ctx, state); err != nil {
		logCtx.WithError(err).Error("Failed to store code state")
		return nil, ErrInternalServer
	}

	event := domain.RoomEvent{Type: domain.RoomEventCode, RoomID: roomID, Origin: origin, Code: code}
	if err := s.stateRepo.PublishRoomEvent(ctx, event); err != nil {
		// 广播尽力而为，状态已写入
		logCtx.WithError(err).Warn("Failed to publish code event")
	}

	s.scheduleCheckpoint(ctx, roomID, logCtx)
	logCtx.WithField("code_len", len(code)).Debug("Code state updated")
	return &state, nil
}

func (s *CollaborationService) scheduleCheckpoint(ctx context.Context, roomID string, logCtx *logrus.Entry) {
	if s.enqueuer == nil {
		return
	}
	task, opts, err := tasks.NewCodeCheckpointTask(roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build checkpoint task")
		return
	}
	opts = append(opts, asynq.ProcessIn(s.checkpointDelay))
	if _, err := s.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return // 已有待执行的检查点
		}
		logCtx.WithError(err).Warn("Failed to enqueue checkpoint task")
	}
}

// CurrentCode 返回房间的 CodeState：优先 Redis，其次数据库检查点（并回填 Redis），都没有则为空。
func (s *CollaborationService) CurrentCode(ctx context.Context, roomID string) (*domain.CodeState, error) {
	if roomID == "" {
		return nil, ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "current_code", "room_id": roomID})

	state, err := s.stateRepo.GetCode(ctx, roomID)
	if err == nil {
		if state.Language == "" {
			state.Language = langdetect.Detect(state.Code)
		}
		return state, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Error("Failed to read code state from cache")
		return nil, ErrInternalServer
	}

	cp, err := s.codeRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.CodeState{RoomID: roomID, Language: domain.DefaultLanguage}, nil
		}
		logCtx.WithError(err).Error("Failed to read code checkpoint")
		return nil, ErrInternalServer
	}
	restored := cp.ToState()
	if err := s.stateRepo.SetCode(ctx, restored); err != nil {
		logCtx.WithError(err).Warn("Failed to backfill code state cache")
	}
	logCtx.Info("Code state restored from checkpoint")
	return &restored, nil
}

// Checkpoint 将 Redis 中的 CodeState 写入数据库。房间没有 CodeState 时什么也不做。
func (s *CollaborationService) Checkpoint(ctx context.Context, roomID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"operation": "checkpoint", "room_id": roomID})
	state, err := s.stateRepo.GetCode(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logCtx.Debug("No code state to checkpoint")
			return nil
		}
		return err
	}
	cp := &domain.CodeCheckpoint{RoomID: roomID, Code: state.Code, Language: state.Language, UpdatedAt: state.UpdatedAt}
	if err := s.codeRepo.Save(ctx, cp); err != nil {
		logCtx.WithError(err).Error("Failed to save code checkpoint")
		return err
	}
	logCtx.Debug("Code checkpoint saved")
	return nil
}
