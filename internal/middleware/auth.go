package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// ContextRoomIDKey 通过校验的房间 ID 在 gin.Context 中的键
const ContextRoomIDKey = "room_id"

// RoomPassVerifier 校验房间通行令牌并返回其中的房间 ID。
type RoomPassVerifier interface {
	Verify(token string) (string, error)
}

// ErrMissingRoomPass 请求中没有携带令牌
var ErrMissingRoomPass = errors.New("missing room pass")

// RoomPass 返回一个 Gin 中间件，要求请求携带与路径 :roomId 匹配的房间通行令牌。
// 令牌可以放在 Authorization: Bearer 头中，也可以通过 token 查询参数传递（用于 WebSocket）。
func RoomPass(verifier RoomPassVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("RoomPassVerifier cannot be nil for RoomPass middleware")
	}

	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "path": c.FullPath()})

		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingRoomPass) {
				logCtx.Warn("RoomPass middleware: Missing room pass")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Room pass is required"})
			} else {
				logCtx.WithError(err).Warn("RoomPass middleware: Malformed Authorization header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			return
		}

		passRoomID, err := verifier.Verify(tokenStr)
		if err != nil {
			logCtx.WithError(err).Warn("RoomPass middleware: Invalid room pass")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired room pass"})
			return
		}
		if passRoomID != roomID {
			logCtx.WithField("pass_room_id", passRoomID).Warn("RoomPass middleware: Room pass issued for another room")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Room pass does not grant access to this room"})
			return
		}

		c.Set(ContextRoomIDKey, roomID)
		logCtx.Debug("RoomPass middleware: Room access granted")
		c.Next()
	}
}

// extractToken 依次从 Authorization 头和 token 查询参数中读取令牌
func extractToken(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingRoomPass
}
