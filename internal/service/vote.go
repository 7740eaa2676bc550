package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// VoteService 负责快照理解度投票。
type VoteService struct {
	voteRepo  repository.VoteRepository
	stateRepo repository.StateRepository
}

// NewVoteService 创建 VoteService 实例。
func NewVoteService(voteRepo repository.VoteRepository, stateRepo repository.StateRepository) *VoteService {
	if voteRepo == nil || stateRepo == nil {
		panic("VoteRepository and StateRepository cannot be nil for VoteService")
	}
	return &VoteService{voteRepo: voteRepo, stateRepo: stateRepo}
}

// Results 返回快照的投票统计。
func (s *VoteService) Results(ctx context.Context, snapshotID string) (domain.VoteCounts, error) {
	if snapshotID == "" {
		return nil, ErrInvalidInput
	}
	counts, err := s.voteRepo.Results(ctx, snapshotID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": "vote_results", "snapshot_id": snapshotID}).WithError(err).Warn("Failed to fetch vote results")
		return nil, mapUpstreamError(err, ErrSnapshotNotFound)
	}
	return counts, nil
}

// Cast 投票。同一投票者对同一快照只能投一次，重复投票返回 ErrAlreadyVoted。
func (s *VoteService) Cast(ctx context.Context, snapshotID, voterID, rawType string) error {
	voteType, err := domain.ParseVoteType(rawType)
	if err != nil {
		return ErrInvalidVoteType
	}
	if snapshotID == "" || voterID == "" {
		return ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "cast_vote", "snapshot_id": snapshotID, "voter_id": voterID})

	acquired, err := s.stateRepo.AcquireVoteGuard(ctx, snapshotID, voterID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to acquire vote guard")
		return ErrInternalServer
	}
	if !acquired {
		logCtx.Info("Duplicate vote refused")
		return ErrAlreadyVoted
	}

	if err := s.voteRepo.Cast(ctx, snapshotID, voteType); err != nil {
		logCtx.WithError(err).Error("Failed to cast vote upstream")
		if releaseErr := s.stateRepo.ReleaseVoteGuard(ctx, snapshotID, voterID); releaseErr != nil {
			logCtx.WithError(releaseErr).Error("Failed to release vote guard")
		}
		return mapUpstreamError(err, ErrSnapshotNotFound)
	}
	logCtx.WithField("vote_type", voteType).Info("Vote cast")
	return nil
}
