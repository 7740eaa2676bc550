package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"woori-codeshare/internal/dto"
	"woori-codeshare/internal/service"
)

// CommentHandler 处理快照评论接口
type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) List(c *gin.Context) {
	threads, err := h.commentService.List(c.Request.Context(), c.Param("snapshotId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dataResponse{Data: threads})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content is required")
		return
	}
	comment, msg, err := h.commentService.Create(c.Request.Context(), c.Param("snapshotId"), req.Content, req.ParentCommentID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.CommentResponse{Message: msg, Data: *comment})
}

func (h *CommentHandler) Update(c *gin.Context) {
	var req dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content is required")
		return
	}
	comment, err := h.commentService.Update(c.Request.Context(), c.Param("snapshotId"), c.Param("commentId"), req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.CommentResponse{Message: "Comment updated successfully.", Data: *comment})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.commentService.Delete(c.Request.Context(), c.Param("commentId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Comment deleted successfully."})
}

func (h *CommentHandler) Resolve(c *gin.Context) {
	var req dto.ResolveCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: solved is required")
		return
	}
	comment, err := h.commentService.Resolve(c.Request.Context(), c.Param("commentId"), *req.Solved)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.CommentResponse{Message: "Comment status updated.", Data: *comment})
}
