package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/repository"
)

// PresenceService 维护房间在线连接，并在变化时广播完整列表。
type PresenceService struct {
	stateRepo repository.StateRepository
}

// NewPresenceService 创建 PresenceService 实例。
func NewPresenceService(stateRepo repository.StateRepository) *PresenceService {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for PresenceService")
	}
	return &PresenceService{stateRepo: stateRepo}
}

// Join 登记连接并广播最新在线列表。
func (s *PresenceService) Join(ctx context.Context, roomID string, p domain.Participant) (*domain.Presence, error) {
	if roomID == "" || p.ConnID == "" {
		return nil, ErrInvalidInput
	}
	if err := s.stateRepo.AddParticipant(ctx, roomID, p); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "conn_id": p.ConnID}).WithError(err).Error("Failed to register participant")
		return nil, ErrInternalServer
	}
	return s.broadcast(ctx, roomID)
}

// Leave 移除连接并广播最新在线列表。
func (s *PresenceService) Leave(ctx context.Context, roomID, connID string) (*domain.Presence, error) {
	if err := s.stateRepo.RemoveParticipant(ctx, roomID, connID); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "conn_id": connID}).WithError(err).Error("Failed to unregister participant")
		return nil, ErrInternalServer
	}
	return s.broadcast(ctx, roomID)
}

// Current 返回房间当前的在线列表。
func (s *PresenceService) Current(ctx context.Context, roomID string) (*domain.Presence, error) {
	participants, err := s.stateRepo.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, ErrInternalServer
	}
	users := make([]string, 0, len(participants))
	for _, p := range participants {
		users = append(users, p.Name)
	}
	return &domain.Presence{RoomID: roomID, UserCount: len(users), Users: users}, nil
}

func (s *PresenceService) broadcast(ctx context.Context, roomID string) (*domain.Presence, error) {
	presence, err := s.Current(ctx, roomID)
	if err != nil {
		return nil, err
	}
	event := domain.RoomEvent{Type: domain.RoomEventPresence, RoomID: roomID, Presence: presence}
	if err := s.stateRepo.PublishRoomEvent(ctx, event); err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Failed to publish presence event")
	}
	return presence, nil
}
