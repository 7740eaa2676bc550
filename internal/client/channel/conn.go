package channel

import (
	"encoding/json"
	"errors"
)

// ErrNotConnected 通道未连接或已关闭
var ErrNotConnected = errors.New("channel not connected")

// ErrUnknownDestination 发送到未知的目的地
var ErrUnknownDestination = errors.New("unknown destination")

// Handler 处理一条订阅消息。同一连接上的 Handler 依次调用，不会并发。
type Handler func(body json.RawMessage)

// Conn 是客户端与房间实时通道之间的连接。
type Conn interface {
	// Connected 报告连接当前是否可用
	Connected() bool
	// Subscribe 订阅主题，返回订阅 ID
	Subscribe(topic string, h Handler) (string, error)
	// Unsubscribe 取消订阅。之后不会再收到该订阅的消息，包括已在途的消息。
	Unsubscribe(id string) error
	// Send 向目的地发送一条命令，body 会被序列化为 JSON
	Send(destination string, body any) error
	Close() error
}
