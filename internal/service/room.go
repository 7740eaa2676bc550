package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// RoomService 负责房间创建和密码校验。
type RoomService struct {
	roomRepo  repository.RoomRepository
	stateRepo repository.StateRepository
	passes    *RoomPassService
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, stateRepo repository.StateRepository, passes *RoomPassService) *RoomService {
	if roomRepo == nil || stateRepo == nil || passes == nil {
		panic("RoomRepository, StateRepository and RoomPassService cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, stateRepo: stateRepo, passes: passes}
}

// CreateRoom 创建房间，并把房间的 CodeState 初始化为空串。
func (s *RoomService) CreateRoom(ctx context.Context, title, password string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "create_room", "title": title})

	roomID, err := s.roomRepo.Create(ctx, title, password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create room upstream")
		return "", mapUpstreamError(err, ErrRoomNotFound)
	}
	if roomID == "" {
		logCtx.Error("Upstream returned empty room id")
		return "", ErrUpstream
	}
	logCtx = logCtx.WithField("room_id", roomID)

	// CodeState 初始化失败不影响房间创建，首次读取时按空处理
	if _, err := s.stateRepo.InitCode(ctx, roomID); err != nil {
		logCtx.WithError(err).Warn("Failed to initialise code state")
	}
	logCtx.Info("Room created successfully")
	return roomID, nil
}

// EnterRoom 校验房间密码，通过后签发房间通行令牌。
func (s *RoomService) EnterRoom(ctx context.Context, roomID, password string) (*domain.Room, string, error) {
	if roomID == "" {
		return nil, "", ErrInvalidInput
	}
	logCtx := logrus.WithFields(logrus.Fields{"operation": "enter_room", "room_id": roomID})

	room, err := s.roomRepo.Enter(ctx, roomID, password)
	if err != nil {
		mapped := mapUpstreamError(err, ErrRoomNotFound)
		if mapped == ErrUnauthorized {
			mapped = ErrWrongPassword
		}
		logCtx.WithError(err).Warn("Room entry refused")
		return nil, "", mapped
	}

	token, err := s.passes.Issue(roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to issue room pass")
		return nil, "", ErrInternalServer
	}
	room.Authorized = true
	logCtx.Info("Room entered")
	return room, token, nil
}
