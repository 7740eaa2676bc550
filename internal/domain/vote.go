package domain

import (
	"fmt"
	"math"
)

// VoteType 是理解度投票的三个选项。
type VoteType string

const (
	VotePositive VoteType = "POSITIVE"
	VoteNeutral  VoteType = "NEUTRAL"
	VoteNegative VoteType = "NEGATIVE"
)

// VoteTypes 按展示顺序列出全部选项。
var VoteTypes = []VoteType{VotePositive, VoteNeutral, VoteNegative}

// Valid 判断是否为合法选项。
func (v VoteType) Valid() bool {
	switch v {
	case VotePositive, VoteNeutral, VoteNegative:
		return true
	}
	return false
}

// ParseVoteType 解析投票类型，只接受三个选项的原样写法。
func ParseVoteType(s string) (VoteType, error) {
	v := VoteType(s)
	if !v.Valid() {
		return "", fmt.Errorf("invalid vote type %q", s)
	}
	return v, nil
}

// VoteCounts 是某个快照的投票统计。
type VoteCounts map[VoteType]int

// Total 返回总票数。
func (c VoteCounts) Total() int {
	total := 0
	for _, t := range VoteTypes {
		total += c[t]
	}
	return total
}

// Percentage 返回某选项的百分比（四舍五入），总数为 0 时返回 0。
func (c VoteCounts) Percentage(t VoteType) int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(c[t]) / float64(total) * 100))
}

// Percentages 返回全部选项的百分比。
func (c VoteCounts) Percentages() map[VoteType]int {
	out := make(map[VoteType]int, len(VoteTypes))
	for _, t := range VoteTypes {
		out[t] = c.Percentage(t)
	}
	return out
}
