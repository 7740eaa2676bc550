package domain

// RoomEventType 区分房间事件。
type RoomEventType string

const (
	RoomEventCode     RoomEventType = "code"     // CodeState 被整篇替换
	RoomEventPresence RoomEventType = "presence" // 在线列表变化
)

// RoomEvent 是通过 Redis Pub/Sub 在服务实例之间传递的房间事件。
type RoomEvent struct {
	Type     RoomEventType `json:"type"`
	RoomID   string        `json:"roomId"`
	Origin   string        `json:"origin,omitempty"` // 发起连接 ID，用于排除回显
	Code     string        `json:"code,omitempty"`
	Presence *Presence     `json:"presence,omitempty"`
}
