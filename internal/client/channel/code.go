package channel

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
)

// Subscription 是一次 Attach 的句柄
type Subscription struct {
	id     string
	roomID string
}

// RoomID 返回订阅所属房间
func (s *Subscription) RoomID() string { return s.roomID }

// CodeChannel 在 Conn 上提供房间代码主题的 attach/publish/detach。
// 发布是尽力而为：未连接或发送失败时静默丢弃，不排队也不重试。
type CodeChannel struct {
	conn Conn
	log  *logrus.Entry
}

func NewCodeChannel(conn Conn) *CodeChannel {
	return &CodeChannel{conn: conn, log: logrus.WithField("component", "code_channel")}
}

// Attach 订阅房间代码主题。只会收到之后发布的事件，脱离期间的事件不会补发。
func (c *CodeChannel) Attach(roomID string, onUpdate func(code string)) (*Subscription, error) {
	logCtx := c.log.WithField("room_id", roomID)
	id, err := c.conn.Subscribe(dto.CodeTopic(roomID), func(body json.RawMessage) {
		var ev dto.CodeEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			logCtx.WithError(err).Warn("Dropping malformed code event")
			return
		}
		if ev.EventType != dto.EventTypeUpdate {
			return
		}
		onUpdate(ev.Code)
	})
	if err != nil {
		return nil, err
	}
	logCtx.Debug("Attached to code topic")
	return &Subscription{id: id, roomID: roomID}, nil
}

// Publish 广播整篇代码替换。
func (c *CodeChannel) Publish(roomID, code string) {
	logCtx := c.log.WithField("room_id", roomID)
	if !c.conn.Connected() {
		logCtx.Debug("Channel not connected, dropping code update")
		return
	}
	if err := c.conn.Send(dto.DestinationUpdateCode, dto.UpdateCodeCommand{RoomID: roomID, Code: code}); err != nil {
		logCtx.WithError(err).Warn("Failed to publish code update")
	}
}

// Detach 停止接收代码事件。nil 是合法参数。
func (c *CodeChannel) Detach(sub *Subscription) {
	if sub == nil {
		return
	}
	if err := c.conn.Unsubscribe(sub.id); err != nil {
		c.log.WithError(err).WithField("room_id", sub.roomID).Debug("Unsubscribe failed")
	}
}
