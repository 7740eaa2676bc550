package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoomPassService 签发和校验房间通行令牌。
// 令牌在密码校验通过后签发，之后访问该房间的接口都需要携带。
type RoomPassService struct {
	secret []byte
	expiry time.Duration
}

// NewRoomPassService 创建 RoomPassService 实例。
func NewRoomPassService(secret string, expiryHours int) (*RoomPassService, error) {
	if secret == "" {
		return nil, errors.New("room pass secret cannot be empty")
	}
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &RoomPassService{secret: []byte(secret), expiry: time.Duration(expiryHours) * time.Hour}, nil
}

// Issue 为房间签发令牌。
func (s *RoomPassService) Issue(roomID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room_id": roomID,
		"exp":     now.Add(s.expiry).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign room pass: %w", err)
	}
	return signed, nil
}

// Verify 校验令牌并返回其中的房间 ID。
func (s *RoomPassService) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrUnauthorized
	}
	roomID, _ := claims["room_id"].(string)
	if roomID == "" {
		return "", fmt.Errorf("%w: room_id claim missing", ErrUnauthorized)
	}
	return roomID, nil
}
