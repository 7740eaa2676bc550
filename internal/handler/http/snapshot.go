package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
	"woori-codeshare/internal/service"
)

// SnapshotHandler 处理快照接口
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

// List 返回房间快照，最新的在前
func (h *SnapshotHandler) List(c *gin.Context) {
	snapshots, err := h.snapshotService.List(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dataResponse{Data: snapshots})
}

// Create 创建快照；请求体的 roomId 可省略，默认取路径参数
func (h *SnapshotHandler) Create(c *gin.Context) {
	var req dto.CreateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateSnapshot: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}
	roomID := c.Param("roomId")
	if req.RoomID != "" && req.RoomID != roomID {
		ErrorResponse(c, http.StatusBadRequest, "roomId does not match the path")
		return
	}

	snapshot, err := h.snapshotService.Create(c.Request.Context(), roomID, req.Title, req.Description, req.Code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dataResponse{Message: "Snapshot created successfully", Data: snapshot})
}
