package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端，一个连接只属于一个房间。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	roomID   string
	connID   string
	userName string
	send     chan []byte

	// 以下字段只在 Hub 主循环中访问
	subs   map[string]string // 订阅 ID -> 主题
	joined bool
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, roomID, connID, userName string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		roomID:   roomID,
		connID:   connID,
		userName: userName,
		send:     make(chan []byte, 256),
		subs:     make(map[string]string),
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) logCtx() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"conn_id": c.connID, "room_id": c.roomID})
}

// ReadPump 将帧从 WebSocket 连接泵送到 Hub。
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.messageChan <- HubMessage{Type: msgUnregister, Client: c}:
		case <-c.hub.done:
		case <-time.After(time.Second):
			c.logCtx().Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		c.logCtx().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx().Debug("WebSocket connection closed normally or read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logCtx().Debugf("Received non-text message type: %d", messageType)
			continue
		}
		// 阻塞入队，保证同一连接的帧按顺序处理
		select {
		case c.hub.messageChan <- HubMessage{Type: msgFrame, Client: c, RawData: message}:
		case <-c.hub.done:
			return
		}
	}
}

// WritePump 将消息从 send 通道泵送到 WebSocket 连接。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logCtx().Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}

// sendFrame 非阻塞地把帧放入发送队列，队列满时丢弃（至多一次投递）。
func (c *Client) sendFrame(f dto.Frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		c.logCtx().WithError(err).Error("Failed to marshal frame")
		return
	}
	select {
	case c.send <- raw:
	default:
		c.logCtx().Warn("Client send channel full, frame dropped")
	}
}

func (c *Client) sendError(message string) {
	c.sendFrame(dto.Frame{Command: dto.CommandError, Message: message})
}

func (c *Client) RoomID() string { return c.roomID }
func (c *Client) ConnID() string { return c.connID }
func (c *Client) CloseConn()     { c.conn.Close() }
