package http

import (
	"github.com/gin-gonic/gin"

	"woori-codeshare/internal/dto"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.ErrorResponse{Error: message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// dataResponse 包装列表和单个资源
type dataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}
