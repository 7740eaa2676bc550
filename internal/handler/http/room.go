package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
	"woori-codeshare/internal/service"
)

// RoomHandler 封装了与房间相关的 HTTP 处理逻辑
type RoomHandler struct {
	roomService *service.RoomService
	collab      *service.CollaborationService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService, collab *service.CollaborationService) *RoomHandler {
	return &RoomHandler{roomService: roomService, collab: collab}
}

// CreateRoom 处理创建新房间的请求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: title is required")
		return
	}

	roomID, err := h.roomService.CreateRoom(c.Request.Context(), req.Title, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.CreateRoomResponse{Message: "Room created successfully", RoomID: roomID})
}

// EnterRoom 处理带密码的进入房间请求，成功后返回房间通行令牌
func (h *RoomHandler) EnterRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	room, token, err := h.roomService.EnterRoom(c.Request.Context(), roomID, c.Query("password"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.EnterRoomResponse{Authorized: room.Authorized, Title: room.Title, Token: token})
}

// GetCode 返回房间当前的 CodeState，只在会话开始时使用
func (h *RoomHandler) GetCode(c *gin.Context) {
	state, err := h.collab.CurrentCode(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dataResponse{Data: state})
}
