package repository

import (
	"context"

	"woori-codeshare/internal/domain"
)

// VoteRepository 定义了快照投票的提交和统计查询。
type VoteRepository interface {
	Results(ctx context.Context, snapshotID string) (domain.VoteCounts, error)
	Cast(ctx context.Context, snapshotID string, voteType domain.VoteType) error
}
