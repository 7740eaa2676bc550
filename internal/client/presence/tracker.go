package presence

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/client/channel"
	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
)

// ErrAlreadyJoined Tracker 已加入一个房间
var ErrAlreadyJoined = errors.New("presence tracker already joined a room")

// Tracker 跟踪房间在线参与者。每次收到在线列表都整体替换本地状态。
type Tracker struct {
	conn channel.Conn
	log  *logrus.Entry

	mu        sync.Mutex
	roomID    string
	subID     string
	current   domain.Presence
	listeners []func(domain.Presence)
}

func NewTracker(conn channel.Conn) *Tracker {
	return &Tracker{conn: conn, log: logrus.WithField("component", "presence_tracker")}
}

// OnChange 注册在线列表变化的回调
func (t *Tracker) OnChange(fn func(domain.Presence)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Join 订阅在线列表主题并发送 join.room。
func (t *Tracker) Join(roomID string) error {
	t.mu.Lock()
	if t.subID != "" {
		t.mu.Unlock()
		return ErrAlreadyJoined
	}
	t.mu.Unlock()

	subID, err := t.conn.Subscribe(dto.UsersTopic(roomID), func(body json.RawMessage) {
		var ev dto.PresenceEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			t.log.WithError(err).WithField("room_id", roomID).Warn("Dropping malformed presence event")
			return
		}
		t.replace(roomID, ev)
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.roomID, t.subID = roomID, subID
	t.current = domain.Presence{RoomID: roomID, Users: []string{}}
	t.mu.Unlock()

	if err := t.conn.Send(dto.DestinationJoinRoom, dto.JoinRoomCommand{RoomID: roomID}); err != nil {
		t.Leave()
		return err
	}
	t.log.WithField("room_id", roomID).Debug("Joined room presence")
	return nil
}

func (t *Tracker) replace(roomID string, ev dto.PresenceEvent) {
	users := append([]string{}, ev.Users...)
	p := domain.Presence{RoomID: roomID, UserCount: ev.UserCount, Users: users}

	t.mu.Lock()
	if t.roomID != roomID {
		t.mu.Unlock()
		return
	}
	t.current = p
	listeners := append([]func(domain.Presence){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// Leave 取消在线列表订阅。离开的广播由服务端在连接断开时负责。
func (t *Tracker) Leave() {
	t.mu.Lock()
	subID := t.subID
	t.subID, t.roomID = "", ""
	t.current = domain.Presence{}
	t.mu.Unlock()
	if subID != "" {
		_ = t.conn.Unsubscribe(subID)
	}
}

// Current 返回最近一次收到的在线列表
func (t *Tracker) Current() domain.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.current
	p.Users = append([]string{}, p.Users...)
	return p
}
