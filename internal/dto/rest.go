package dto

import (
	"woori-codeshare/internal/domain"
)

// CreateRoomRequest 创建房间
type CreateRoomRequest struct {
	Title    string `json:"title" binding:"required,max=100"`
	Password string `json:"password"`
}

// CreateRoomResponse 创建房间成功
type CreateRoomResponse struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

// EnterRoomResponse 通过密码校验后返回房间信息和通行令牌
type EnterRoomResponse struct {
	Authorized bool   `json:"authorized"`
	Title      string `json:"title"`
	Token      string `json:"token"`
}

// CreateSnapshotRequest 创建快照；Code 为空时由服务端截取当前 CodeState。
type CreateSnapshotRequest struct {
	RoomID      string `json:"roomId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

// CreateCommentRequest 发表问题或回复
type CreateCommentRequest struct {
	Content         string  `json:"content" binding:"required"`
	ParentCommentID *string `json:"parentCommentId,omitempty"`
}

// UpdateCommentRequest 修改评论内容
type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ResolveCommentRequest 设置解决状态
type ResolveCommentRequest struct {
	Solved *bool `json:"solved" binding:"required"`
}

// CommentResponse 评论写操作的响应
type CommentResponse struct {
	Message string         `json:"message"`
	Data    domain.Comment `json:"data"`
}

// CastVoteRequest 投票
type CastVoteRequest struct {
	VoteType string `json:"voteType" binding:"required"`
}

// VoteResultsResponse 投票统计
type VoteResultsResponse struct {
	VoteCounts  domain.VoteCounts       `json:"voteCounts"`
	Total       int                     `json:"total"`
	Percentages map[domain.VoteType]int `json:"percentages"`
}

// NewVoteResultsResponse 由统计构造响应
func NewVoteResultsResponse(counts domain.VoteCounts) VoteResultsResponse {
	if counts == nil {
		counts = domain.VoteCounts{}
	}
	return VoteResultsResponse{VoteCounts: counts, Total: counts.Total(), Percentages: counts.Percentages()}
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// VoterHeader 携带投票者 ID 的请求头
const VoterHeader = "X-Voter-ID"
