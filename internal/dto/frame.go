package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 通道帧命令
const (
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandSend        = "SEND"
	CommandMessage     = "MESSAGE"
	CommandError       = "ERROR"
)

// 客户端可以发送的目的地
const (
	DestinationJoinRoom   = "/app/join.room"
	DestinationUpdateCode = "/app/update.code"
)

// EventTypeUpdate 是代码整篇替换事件。
const EventTypeUpdate = "UPDATE"

// Frame 是实时通道上传输的一帧。
type Frame struct {
	Command     string          `json:"command"`
	Destination string          `json:"destination,omitempty"`
	ID          string          `json:"id,omitempty"` // 订阅 ID
	Body        json.RawMessage `json:"body,omitempty"`
	Message     string          `json:"message,omitempty"` // ERROR 的说明
}

// CodeEvent 是 room/{roomId}/code 主题的负载。
type CodeEvent struct {
	EventType string `json:"eventType"`
	Code      string `json:"code"`
}

// PresenceEvent 是 room/{roomId}/users 主题的负载。
type PresenceEvent struct {
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
}

// UpdateCodeCommand 是 update.code 的请求体。
type UpdateCodeCommand struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

// JoinRoomCommand 是 join.room 的请求体。
type JoinRoomCommand struct {
	RoomID string `json:"roomId"`
}

// ErrorDTO 表示发送给客户端的错误消息。
type ErrorDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CodeTopic 返回房间代码主题。
func CodeTopic(roomID string) string { return "/topic/room/" + roomID + "/code" }

// UsersTopic 返回房间在线列表主题。
func UsersTopic(roomID string) string { return "/topic/room/" + roomID + "/users" }

// ParseTopic 解析 /topic/room/{roomId}/{kind}，kind 为 code 或 users。
func ParseTopic(topic string) (roomID, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, "/topic/room/")
	if !ok {
		return "", "", fmt.Errorf("unknown topic %q", topic)
	}
	i := strings.LastIndex(rest, "/")
	if i <= 0 {
		return "", "", fmt.Errorf("malformed topic %q", topic)
	}
	roomID, kind = rest[:i], rest[i+1:]
	if kind != "code" && kind != "users" {
		return "", "", fmt.Errorf("unknown topic kind %q", kind)
	}
	return roomID, kind, nil
}

// NewFrame 构造一帧，body 会被序列化为 JSON。
func NewFrame(command, destination, id string, body any) (Frame, error) {
	f := Frame{Command: command, Destination: destination, ID: id}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Frame{}, fmt.Errorf("marshal frame body: %w", err)
		}
		f.Body = raw
	}
	return f, nil
}
