package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "woori-codeshare/internal/handler/http"
	wsHandler "woori-codeshare/internal/handler/websocket"
	"woori-codeshare/internal/middleware"
)

// Handlers 汇总路由需要的所有处理器
type Handlers struct {
	Room      *httpHandler.RoomHandler
	Snapshot  *httpHandler.SnapshotHandler
	Comment   *httpHandler.CommentHandler
	Vote      *httpHandler.VoteHandler
	WebSocket *wsHandler.WebSocketHandler
}

// RouterOptions 路由的中间件依赖
type RouterOptions struct {
	AllowedOrigin   string
	Passes          middleware.RoomPassVerifier
	Limiter         middleware.RateLimiter
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewRouter 创建 Gin Engine 并注册全部路由
func NewRouter(log *logrus.Logger, h Handlers, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(opts.AllowedOrigin))
	if opts.Limiter != nil {
		router.Use(middleware.RateLimit(opts.Limiter, opts.RateLimitMax, opts.RateLimitWindow))
	}

	roomPass := middleware.RoomPass(opts.Passes)

	api := router.Group("/api")
	api.POST("/rooms", h.Room.CreateRoom)
	api.POST("/rooms/:roomId/participants", h.Room.EnterRoom)

	room := api.Group("/rooms/:roomId", roomPass)
	{
		room.GET("/code", h.Room.GetCode)
		room.GET("/snapshots", h.Snapshot.List)
		room.POST("/snapshots", h.Snapshot.Create)

		snapshot := room.Group("/snapshots/:snapshotId")
		snapshot.GET("/comments", h.Comment.List)
		snapshot.POST("/comments", h.Comment.Create)
		snapshot.PATCH("/comments/:commentId", h.Comment.Update)
		snapshot.DELETE("/comments/:commentId", h.Comment.Delete)
		snapshot.PATCH("/comments/:commentId/resolve", h.Comment.Resolve)
		snapshot.GET("/votes", h.Vote.Results)
		snapshot.POST("/votes", h.Vote.Cast)
	}

	router.GET("/ws/room/:roomId", roomPass, h.WebSocket.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Voter-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		// 令牌可能出现在查询参数中，不记录 RawQuery
		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
