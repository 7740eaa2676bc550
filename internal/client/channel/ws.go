package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
)

const (
	writeWait     = 10 * time.Second
	handshakeWait = 10 * time.Second
)

// WSConn 是基于 WebSocket 的 Conn 实现。
// 只有一个读 goroutine，消息按到达顺序分发给 Handler。
type WSConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]Handler

	connected atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	log       *logrus.Entry
}

// Dial 连接到网关的房间通道，并等待 CONNECTED 帧。
func Dial(ctx context.Context, url string, header http.Header) (*WSConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeWait}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: handshake failed with status %d", ErrNotConnected, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	var first dto.Frame
	if err := conn.ReadJSON(&first); err != nil || first.Command != dto.CommandConnected {
		conn.Close()
		if err == nil {
			err = fmt.Errorf("unexpected %s frame: %s", first.Command, first.Message)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &WSConn{
		conn:     conn,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
		log:      logrus.WithField("component", "ws_conn"),
	}
	c.connected.Store(true)
	go c.readLoop()
	return c, nil
}

func (c *WSConn) readLoop() {
	defer func() {
		c.connected.Store(false)
		close(c.done)
	}()
	for {
		var f dto.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("Channel read failed")
			}
			return
		}
		switch f.Command {
		case dto.CommandMessage:
			c.mu.RLock()
			h := c.handlers[f.ID]
			c.mu.RUnlock()
			if h != nil {
				h(f.Body)
			}
		case dto.CommandError:
			c.log.WithField("message", f.Message).Warn("Channel error frame received")
		}
	}
}

func (c *WSConn) Connected() bool { return c.connected.Load() }

// Done 在读循环退出后关闭
func (c *WSConn) Done() <-chan struct{} { return c.done }

func (c *WSConn) Subscribe(topic string, h Handler) (string, error) {
	if !c.Connected() {
		return "", ErrNotConnected
	}
	id := uuid.NewString()
	c.mu.Lock()
	c.handlers[id] = h
	c.mu.Unlock()

	if err := c.write(dto.Frame{Command: dto.CommandSubscribe, Destination: topic, ID: id}); err != nil {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
		return "", err
	}
	return id, nil
}

func (c *WSConn) Unsubscribe(id string) error {
	c.mu.Lock()
	_, ok := c.handlers[id]
	delete(c.handlers, id)
	c.mu.Unlock()
	if !ok || !c.Connected() {
		return nil
	}
	return c.write(dto.Frame{Command: dto.CommandUnsubscribe, ID: id})
}

func (c *WSConn) Send(destination string, body any) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	f, err := dto.NewFrame(dto.CommandSend, destination, "", body)
	if err != nil {
		return err
	}
	return c.write(f)
}

func (c *WSConn) write(f dto.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Close 发送关闭帧并等待读循环退出
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}
