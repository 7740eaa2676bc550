package upstream

import (
	"context"
	"net/http"
	"net/url"

	"woori-codeshare/internal/domain"
)

// VoteRepository 通过外部后端实现 repository.VoteRepository。
type VoteRepository struct{ c *Client }

func NewVoteRepository(c *Client) *VoteRepository { return &VoteRepository{c: c} }

func votePath(snapshotID string) string { return "/api/v1/votes/" + url.PathEscape(snapshotID) }

// Results 查询投票统计，缺失的选项补 0。
func (r *VoteRepository) Results(ctx context.Context, snapshotID string) (domain.VoteCounts, error) {
	var out struct {
		VoteCounts map[string]int `json:"voteCounts"`
	}
	if err := r.c.do(ctx, http.MethodGet, votePath(snapshotID)+"/results", nil, nil, &out); err != nil {
		return nil, err
	}
	counts := make(domain.VoteCounts, len(domain.VoteTypes))
	for _, t := range domain.VoteTypes {
		counts[t] = out.VoteCounts[string(t)]
	}
	return counts, nil
}

// Cast 投票。
func (r *VoteRepository) Cast(ctx context.Context, snapshotID string, voteType domain.VoteType) error {
	body := map[string]string{"voteType": string(voteType)}
	return r.c.do(ctx, http.MethodPost, votePath(snapshotID)+"/cast", nil, body, nil)
}
