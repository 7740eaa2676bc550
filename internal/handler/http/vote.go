package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"woori-codeshare/internal/dto"
	"woori-codeshare/internal/service"
)

// VoteHandler 处理快照投票接口
type VoteHandler struct {
	voteService *service.VoteService
}

func NewVoteHandler(voteService *service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

func (h *VoteHandler) Results(c *gin.Context) {
	counts, err := h.voteService.Results(c.Request.Context(), c.Param("snapshotId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dataResponse{Data: dto.NewVoteResultsResponse(counts)})
}

// Cast 投票，投票者由 X-Voter-ID 请求头标识
func (h *VoteHandler) Cast(c *gin.Context) {
	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: voteType is required")
		return
	}
	voterID := strings.TrimSpace(c.GetHeader(dto.VoterHeader))
	if voterID == "" {
		ErrorResponse(c, http.StatusBadRequest, dto.VoterHeader+" header is required")
		return
	}
	if err := h.voteService.Cast(c.Request.Context(), c.Param("snapshotId"), voterID, req.VoteType); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Vote cast successfully."})
}
