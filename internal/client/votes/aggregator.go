package votes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/client/api"
	"woori-codeshare/internal/client/kv"
	"woori-codeshare/internal/domain"
)

var (
	// ErrInvalidVoteType 投票类型不是 POSITIVE、NEUTRAL 或 NEGATIVE
	ErrInvalidVoteType = errors.New("invalid vote type")
	// ErrAlreadyVoted 本地记录显示已经投过票
	ErrAlreadyVoted = errors.New("already voted on this snapshot")
)

// DefaultInterval 投票结果的轮询间隔
const DefaultInterval = time.Second

// Backend 投票的远端接口，由 api.Client 实现
type Backend interface {
	VoteResults(ctx context.Context, roomID, snapshotID string) (domain.VoteCounts, error)
	CastVote(ctx context.Context, roomID, snapshotID, voterID string, voteType domain.VoteType) error
}

// Aggregator 按快照统计理解度投票。
// 结果通过定时轮询刷新，本地投票成功后立即刷新一次；去重记录保存在 kv.Store 中。
type Aggregator struct {
	backend  Backend
	store    kv.Store
	roomID   string
	voterID  string
	interval time.Duration
	log      *logrus.Entry

	mu       sync.Mutex
	watching string
	onResult func(domain.VoteCounts)
	latest   domain.VoteCounts
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewAggregator(backend Backend, store kv.Store, roomID, voterID string, interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{
		backend:  backend,
		store:    store,
		roomID:   roomID,
		voterID:  voterID,
		interval: interval,
		log:      logrus.WithFields(logrus.Fields{"component": "vote_aggregator", "room_id": roomID}),
	}
}

// VotedFor 返回本地记录的投票
func (a *Aggregator) VotedFor(ctx context.Context, snapshotID string) (domain.VoteType, bool, error) {
	v, ok, err := a.store.Get(ctx, kv.VoteKey(a.voterID, snapshotID))
	if err != nil || !ok {
		return "", false, err
	}
	return domain.VoteType(v), true, nil
}

// Cast 投票。已有本地记录时直接拒绝，不访问网络。
func (a *Aggregator) Cast(ctx context.Context, snapshotID, rawType string) error {
	voteType, err := domain.ParseVoteType(rawType)
	if err != nil {
		return ErrInvalidVoteType
	}
	if _, voted, err := a.VotedFor(ctx, snapshotID); err != nil {
		return err
	} else if voted {
		return ErrAlreadyVoted
	}

	logCtx := a.log.WithFields(logrus.Fields{"snapshot_id": snapshotID, "vote_type": voteType})
	castErr := a.backend.CastVote(ctx, a.roomID, snapshotID, a.voterID, voteType)
	if castErr != nil && !errors.Is(castErr, api.ErrConflict) {
		logCtx.WithError(castErr).Warn("Failed to cast vote")
		return castErr
	}
	// 服务端已有该投票者的记录时同样写入本地，之后不再尝试
	if err := a.store.Set(ctx, kv.VoteKey(a.voterID, snapshotID), string(voteType)); err != nil {
		logCtx.WithError(err).Warn("Failed to persist vote record")
	}
	if castErr != nil {
		return ErrAlreadyVoted
	}
	logCtx.Info("Vote cast")
	a.refresh(ctx, snapshotID)
	return nil
}

// Results 直接读取一次投票结果
func (a *Aggregator) Results(ctx context.Context, snapshotID string) (domain.VoteCounts, error) {
	counts, err := a.backend.VoteResults(ctx, a.roomID, snapshotID)
	if err != nil {
		return nil, err
	}
	return normalize(counts), nil
}

func normalize(counts domain.VoteCounts) domain.VoteCounts {
	out := make(domain.VoteCounts, len(domain.VoteTypes))
	for _, t := range domain.VoteTypes {
		out[t] = counts[t]
	}
	return out
}

// Watch 开始轮询快照的投票结果，之前的轮询会先停止。
// 轮询失败时保留上一次的结果。onResults 在轮询协程中调用，不能在其中调用 Stop 或 Watch。
func (a *Aggregator) Watch(ctx context.Context, snapshotID string, onResults func(domain.VoteCounts)) {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	// 在同一次加锁中换入新的轮询，并发的 Watch 只会留下最后一个
	a.mu.Lock()
	prevCancel, prevDone := a.cancel, a.done
	a.watching = snapshotID
	a.onResult = onResults
	a.latest = nil
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()
	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	go func() {
		defer close(done)
		if watchCtx.Err() != nil {
			return
		}
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		a.refresh(watchCtx, snapshotID)
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				a.refresh(watchCtx, snapshotID)
			}
		}
	}()
}

// refresh 拉取结果；只有仍在观察该快照时才更新并回调
func (a *Aggregator) refresh(ctx context.Context, snapshotID string) {
	counts, err := a.Results(ctx, snapshotID)
	if err != nil {
		if ctx.Err() == nil {
			a.log.WithError(err).WithField("snapshot_id", snapshotID).Debug("Vote poll failed, keeping last results")
		}
		return
	}

	a.mu.Lock()
	if a.watching != snapshotID {
		a.mu.Unlock()
		return
	}
	a.latest = counts
	fn := a.onResult
	a.mu.Unlock()
	if fn != nil {
		fn(counts)
	}
}

// Latest 返回正在观察的快照最近一次的结果
func (a *Aggregator) Latest() (domain.VoteCounts, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		return nil, false
	}
	return normalize(a.latest), true
}

// Stop 停止轮询并等待轮询 goroutine 退出，不能在 onResults 回调中调用
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.watching = ""
	a.onResult = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
