package channel

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/dto"
)

const memoryQueueSize = 1024

// MemoryBroker 是进程内的房间通道，语义与网关一致：
// update.code 广播给除发送者外的订阅者，join.room 登记在线并整体广播在线列表。
type MemoryBroker struct {
	mu       sync.Mutex
	subs     map[string]map[string]*MemoryConn // topic -> 订阅 ID -> 连接
	presence map[string][]*MemoryConn          // roomID -> 按加入顺序
	log      *logrus.Entry
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs:     make(map[string]map[string]*MemoryConn),
		presence: make(map[string][]*MemoryConn),
		log:      logrus.WithField("component", "memory_broker"),
	}
}

type delivery struct {
	subID string
	body  json.RawMessage
}

// MemoryConn 是 MemoryBroker 上的一个连接。
type MemoryConn struct {
	broker *MemoryBroker
	id     string
	user   string

	mu        sync.Mutex
	handlers  map[string]Handler
	connected bool

	queue chan delivery
	done  chan struct{}
}

// Connect 以给定用户名建立连接
func (b *MemoryBroker) Connect(user string) *MemoryConn {
	c := &MemoryConn{
		broker:    b,
		id:        uuid.NewString(),
		user:      user,
		handlers:  make(map[string]Handler),
		connected: true,
		queue:     make(chan delivery, memoryQueueSize),
		done:      make(chan struct{}),
	}
	go c.loop()
	return c
}

// Publish 直接向主题投递消息，不排除任何订阅者
func (b *MemoryBroker) Publish(topic string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fanoutLocked(topic, raw, nil)
	return nil
}

// fanoutLocked 调用方需持有 b.mu
func (b *MemoryBroker) fanoutLocked(topic string, body json.RawMessage, exclude *MemoryConn) {
	for subID, c := range b.subs[topic] {
		if c == exclude {
			continue
		}
		select {
		case c.queue <- delivery{subID: subID, body: body}:
		default:
			b.log.WithFields(logrus.Fields{"topic": topic, "conn_id": c.id}).Warn("Delivery queue full, dropping message")
		}
	}
}

func (b *MemoryBroker) broadcastPresenceLocked(roomID string) {
	members := b.presence[roomID]
	users := make([]string, 0, len(members))
	for _, m := range members {
		users = append(users, m.user)
	}
	raw, _ := json.Marshal(dto.PresenceEvent{UserCount: len(users), Users: users})
	b.fanoutLocked(dto.UsersTopic(roomID), raw, nil)
}

func (b *MemoryBroker) handleSend(c *MemoryConn, destination string, raw json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch destination {
	case dto.DestinationUpdateCode:
		var cmd dto.UpdateCodeCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.RoomID == "" {
			return fmt.Errorf("invalid update.code body")
		}
		body, _ := json.Marshal(dto.CodeEvent{EventType: dto.EventTypeUpdate, Code: cmd.Code})
		b.fanoutLocked(dto.CodeTopic(cmd.RoomID), body, c)
	case dto.DestinationJoinRoom:
		var cmd dto.JoinRoomCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.RoomID == "" {
			return fmt.Errorf("invalid join.room body")
		}
		for _, m := range b.presence[cmd.RoomID] {
			if m == c {
				b.broadcastPresenceLocked(cmd.RoomID)
				return nil
			}
		}
		b.presence[cmd.RoomID] = append(b.presence[cmd.RoomID], c)
		b.broadcastPresenceLocked(cmd.RoomID)
	default:
		return ErrUnknownDestination
	}
	return nil
}

func (b *MemoryBroker) disconnect(c *MemoryConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.subs {
		for id, sc := range subs {
			if sc == c {
				delete(subs, id)
			}
		}
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
	for roomID, members := range b.presence {
		kept := members[:0]
		removed := false
		for _, m := range members {
			if m == c {
				removed = true
				continue
			}
			kept = append(kept, m)
		}
		b.presence[roomID] = kept
		if removed {
			b.broadcastPresenceLocked(roomID)
		}
	}
	// 已从所有主题移除，之后不会再有投递
	close(c.queue)
}

func (c *MemoryConn) loop() {
	defer close(c.done)
	for d := range c.queue {
		c.mu.Lock()
		h := c.handlers[d.subID]
		c.mu.Unlock()
		if h != nil {
			h(d.body)
		}
	}
}

// ID 返回连接 ID
func (c *MemoryConn) ID() string { return c.id }

func (c *MemoryConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MemoryConn) Subscribe(topic string, h Handler) (string, error) {
	if !c.Connected() {
		return "", ErrNotConnected
	}
	if _, _, err := dto.ParseTopic(topic); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.mu.Lock()
	c.handlers[id] = h
	c.mu.Unlock()

	b := c.broker
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*MemoryConn)
	}
	b.subs[topic][id] = c
	b.mu.Unlock()
	return id, nil
}

func (c *MemoryConn) Unsubscribe(id string) error {
	c.mu.Lock()
	delete(c.handlers, id)
	c.mu.Unlock()

	b := c.broker
	b.mu.Lock()
	for topic, subs := range b.subs {
		if _, ok := subs[id]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subs, topic)
			}
		}
	}
	b.mu.Unlock()
	return nil
}

func (c *MemoryConn) Send(destination string, body any) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.broker.handleSend(c, destination, raw)
}

// Close 断开连接，在线列表会重新广播。已排队的消息在关闭前处理完。
func (c *MemoryConn) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.broker.disconnect(c)
	<-c.done
	return nil
}
