package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteCounts_Percentage(t *testing.T) {
	counts := VoteCounts{VotePositive: 3, VoteNeutral: 1, VoteNegative: 0}

	assert.Equal(t, 4, counts.Total())
	assert.Equal(t, 75, counts.Percentage(VotePositive))
	assert.Equal(t, 25, counts.Percentage(VoteNeutral))
	assert.Equal(t, 0, counts.Percentage(VoteNegative))
}

func TestVoteCounts_EmptyIsZero(t *testing.T) {
	for _, counts := range []VoteCounts{nil, {}} {
		assert.Equal(t, 0, counts.Total())
		for _, vt := range VoteTypes {
			assert.Equal(t, 0, counts.Percentage(vt))
		}
	}
}

func TestVoteCounts_RoundsHalfUp(t *testing.T) {
	counts := VoteCounts{VotePositive: 1, VoteNeutral: 1, VoteNegative: 1}
	// 33.33 -> 33
	assert.Equal(t, map[VoteType]int{VotePositive: 33, VoteNeutral: 33, VoteNegative: 33}, counts.Percentages())

	counts = VoteCounts{VotePositive: 1, VoteNeutral: 7}
	// 12.5 -> 13, 87.5 -> 88
	assert.Equal(t, 13, counts.Percentage(VotePositive))
	assert.Equal(t, 88, counts.Percentage(VoteNeutral))
}

func TestParseVoteType(t *testing.T) {
	for _, want := range VoteTypes {
		v, err := ParseVoteType(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	// 只接受原样的选项名
	for _, raw := range []string{"positive", " Neutral ", "negative", "POSITIVE ", "MAYBE", ""} {
		_, err := ParseVoteType(raw)
		assert.Error(t, err, "%q must be rejected", raw)
	}
}

func strPtr(s string) *string { return &s }

func TestBuildThreads(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	comments := []Comment{
		{ID: "r2", ParentID: strPtr("q1"), Content: "second reply", CreatedAt: base.Add(4 * time.Minute)},
		{ID: "q2", Content: "later question", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "q1", Content: "first question", CreatedAt: base},
		{ID: "r1", ParentID: strPtr("q1"), Content: "first reply", CreatedAt: base.Add(time.Minute)},
		{ID: "orphan", ParentID: strPtr("gone"), Content: "parent deleted", CreatedAt: base},
	}

	threads := BuildThreads(comments)

	require.Len(t, threads, 2)
	assert.Equal(t, "q1", threads[0].ID)
	assert.Equal(t, "q2", threads[1].ID)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, "r1", threads[0].Replies[0].ID)
	assert.Equal(t, "r2", threads[0].Replies[1].ID)
	assert.False(t, threads[0].Editable(), "有回复的问题不可修改")
	assert.True(t, threads[1].Editable())
	assert.NotNil(t, threads[1].Replies)

	c, thread, ok := FindComment(threads, "r2")
	require.True(t, ok)
	assert.True(t, c.IsReply())
	assert.Equal(t, "q1", thread.ID)

	_, _, ok = FindComment(threads, "orphan")
	assert.False(t, ok, "孤儿回复不显示")
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Now()
	snaps := []Snapshot{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(2 * time.Second)},
		{ID: "b", CreatedAt: base.Add(time.Second)},
	}
	SortNewestFirst(snaps)
	assert.Equal(t, []string{"c", "b", "a"}, []string{snaps[0].ID, snaps[1].ID, snaps[2].ID})
}
