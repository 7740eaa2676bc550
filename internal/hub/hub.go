package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/domain"
	"woori-codeshare/internal/dto"
	"woori-codeshare/internal/repository"
	"woori-codeshare/internal/service"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 整篇代码随帧传输，上限放宽到 512KB
	maxMessageSize = 512 * 1024

	// 在线状态心跳周期，需明显小于 redisstate.ParticipantStaleAfter
	presenceHeartbeat = time.Minute
)

// 内部消息类型
const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgFrame      = "frame" // 客户端发来的原始帧
	msgEvent      = "event" // Redis 房间频道上的事件
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string
	Client  *Client
	RawData []byte
	Event   domain.RoomEvent
}

// Hub 维护活跃客户端集合，并按顺序处理同一实例上的所有帧和房间事件。
// 同一房间的事件先经 Redis 频道再进入这个循环，因此每个房间内的投递顺序与发布顺序一致。
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopOnce    sync.Once

	// map[roomID]map[*Client]bool
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	// 每个房间一个 Redis 订阅，房间内首个连接注册时建立，最后一个离开时取消
	roomSubs map[string]func()
	subsMu   sync.Mutex

	events   repository.StateRepository
	collab   *service.CollaborationService
	presence *service.PresenceService
	log      *logrus.Entry
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(events repository.StateRepository, collab *service.CollaborationService, presence *service.PresenceService) *Hub {
	if events == nil || collab == nil || presence == nil {
		panic("StateRepository, CollaborationService and PresenceService cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		rooms:       make(map[string]map[*Client]bool),
		roomSubs:    make(map[string]func()),
		events:      events,
		collab:      collab,
		presence:    presence,
		log:         logrus.WithField("component", "hub"),
	}
}

// Run 启动 Hub 的主事件处理循环，应在单独的 goroutine 中运行。
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	heartbeat := time.NewTicker(presenceHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case msg := <-h.messageChan:
			h.dispatch(msg)
		case <-heartbeat.C:
			h.touchPresence()
		case <-h.done:
			h.log.Info("Hub is shutting down...")
			return
		}
	}
}

func (h *Hub) dispatch(msg HubMessage) {
	switch msg.Type {
	case msgRegister:
		h.registerClient(msg.Client)
	case msgUnregister:
		h.unregisterClient(msg.Client)
	case msgFrame:
		h.handleFrame(msg.Client, msg.RawData)
	case msgEvent:
		h.handleRoomEvent(msg.Event)
	default:
		h.log.Warnf("Hub: Received unknown message type: %s", msg.Type)
	}
}

// registerClient 处理客户端注册逻辑。
// 房间频道订阅失败时拒绝该连接（ERROR 帧后关闭），下一个连接会重新尝试订阅。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{"room_id": client.roomID, "conn_id": client.connID, "action": "registerClient"})

	h.roomsMu.Lock()
	if _, ok := h.rooms[client.roomID]; !ok {
		h.rooms[client.roomID] = make(map[*Client]bool)
	}
	h.rooms[client.roomID][client] = true
	h.roomsMu.Unlock()

	if err := h.ensureSubscribed(client.roomID); err != nil {
		logCtx.WithError(err).Error("Failed to subscribe room events, rejecting client")
		h.roomsMu.Lock()
		delete(h.rooms[client.roomID], client)
		if len(h.rooms[client.roomID]) == 0 {
			delete(h.rooms, client.roomID)
		}
		h.roomsMu.Unlock()
		client.sendError("room channel unavailable, please reconnect")
		close(client.send)
		return
	}
	client.sendFrame(dto.Frame{Command: dto.CommandConnected})
	logCtx.Info("Client registered to Hub")
}

// unregisterClient 处理客户端注销逻辑
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{"room_id": client.roomID, "conn_id": client.connID, "action": "unregisterClient"})

	h.roomsMu.Lock()
	roomClients, ok := h.rooms[client.roomID]
	if !ok || !roomClients[client] {
		h.roomsMu.Unlock()
		logCtx.Warn("Client not found in room during unregister")
		return
	}
	delete(roomClients, client)
	empty := len(roomClients) == 0
	if empty {
		delete(h.rooms, client.roomID)
	}
	h.roomsMu.Unlock()
	close(client.send)

	if client.joined {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := h.presence.Leave(ctx, client.roomID, client.connID); err != nil {
			logCtx.WithError(err).Warn("Failed to unregister presence")
		}
		cancel()
	}
	if empty {
		h.unsubscribeRoom(client.roomID)
		logCtx.Info("Room empty, removed from Hub")
	}
	logCtx.Info("Client unregistered from Hub")
}

// touchPresence 为本实例上已加入的连接续约心跳，只在 Hub 主循环中调用
func (h *Hub) touchPresence() {
	h.roomsMu.RLock()
	joined := make(map[string][]string, len(h.rooms))
	for roomID, clients := range h.rooms {
		for c := range clients {
			if c.joined {
				joined[roomID] = append(joined[roomID], c.connID)
			}
		}
	}
	h.roomsMu.RUnlock()

	for roomID, connIDs := range joined {
		sort.Strings(connIDs)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.events.TouchParticipants(ctx, roomID, connIDs); err != nil {
			h.log.WithError(err).WithField("room_id", roomID).Warn("Failed to refresh presence heartbeat")
		}
		cancel()
	}
}

// ensureSubscribed 房间还没有 Redis 订阅时建立订阅，只在 Hub 主循环中调用
func (h *Hub) ensureSubscribed(roomID string) error {
	h.subsMu.Lock()
	_, ok := h.roomSubs[roomID]
	h.subsMu.Unlock()
	if ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stop, err := h.events.SubscribeRoomEvents(ctx, roomID, func(e domain.RoomEvent) {
		select {
		case h.messageChan <- HubMessage{Type: msgEvent, Event: e}:
		case <-h.done:
		}
	})
	if err != nil {
		return err
	}
	h.subsMu.Lock()
	h.roomSubs[roomID] = stop
	h.subsMu.Unlock()
	return nil
}

func (h *Hub) unsubscribeRoom(roomID string) {
	h.subsMu.Lock()
	stop, ok := h.roomSubs[roomID]
	delete(h.roomSubs, roomID)
	h.subsMu.Unlock()
	if ok {
		// stop 会等待订阅 goroutine 退出，而它可能正阻塞在 messageChan 上
		go stop()
	}
}

// handleFrame 处理客户端发来的一帧
func (h *Hub) handleFrame(client *Client, raw []byte) {
	logCtx := h.log.WithFields(logrus.Fields{"room_id": client.roomID, "conn_id": client.connID})

	var frame dto.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.sendError("malformed frame")
		return
	}

	switch frame.Command {
	case dto.CommandSubscribe:
		roomID, _, err := dto.ParseTopic(frame.Destination)
		if err != nil || frame.ID == "" {
			client.sendError("invalid subscription")
			return
		}
		if roomID != client.roomID {
			client.sendError("connection is bound to room " + client.roomID)
			return
		}
		client.subs[frame.ID] = frame.Destination
		logCtx.WithField("topic", frame.Destination).Debug("Client subscribed")
	case dto.CommandUnsubscribe:
		delete(client.subs, frame.ID)
	case dto.CommandSend:
		h.handleSend(client, frame, logCtx)
	default:
		client.sendError("unsupported command " + frame.Command)
	}
}

func (h *Hub) handleSend(client *Client, frame dto.Frame, logCtx *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Destination {
	case dto.DestinationUpdateCode:
		var cmd dto.UpdateCodeCommand
		if err := json.Unmarshal(frame.Body, &cmd); err != nil {
			client.sendError("malformed update.code body")
			return
		}
		if cmd.RoomID != "" && cmd.RoomID != client.roomID {
			client.sendError("connection is bound to room " + client.roomID)
			return
		}
		if _, err := h.collab.UpdateCode(ctx, client.roomID, client.connID, cmd.Code); err != nil {
			logCtx.WithError(err).Warn("update.code failed")
			client.sendError("failed to update code")
		}
	case dto.DestinationJoinRoom:
		var cmd dto.JoinRoomCommand
		if len(frame.Body) > 0 {
			if err := json.Unmarshal(frame.Body, &cmd); err != nil {
				client.sendError("malformed join.room body")
				return
			}
		}
		if cmd.RoomID != "" && cmd.RoomID != client.roomID {
			client.sendError("connection is bound to room " + client.roomID)
			return
		}
		if _, err := h.presence.Join(ctx, client.roomID, domain.Participant{ConnID: client.connID, Name: client.userName}); err != nil {
			logCtx.WithError(err).Warn("join.room failed")
			client.sendError("failed to join room")
			return
		}
		client.joined = true
	default:
		client.sendError("unknown destination " + frame.Destination)
	}
}

// handleRoomEvent 把房间事件转发给本实例上订阅了对应主题的连接。
// 代码事件不回发给发起连接。
func (h *Hub) handleRoomEvent(e domain.RoomEvent) {
	var (
		topic string
		body  any
	)
	switch e.Type {
	case domain.RoomEventCode:
		topic = dto.CodeTopic(e.RoomID)
		body = dto.CodeEvent{EventType: dto.EventTypeUpdate, Code: e.Code}
	case domain.RoomEventPresence:
		if e.Presence == nil {
			return
		}
		users := e.Presence.Users
		if users == nil {
			users = []string{}
		}
		topic = dto.UsersTopic(e.RoomID)
		body = dto.PresenceEvent{UserCount: e.Presence.UserCount, Users: users}
	default:
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal room event")
		return
	}

	h.roomsMu.RLock()
	recipients := make([]*Client, 0, len(h.rooms[e.RoomID]))
	for c := range h.rooms[e.RoomID] {
		if e.Type == domain.RoomEventCode && c.connID == e.Origin {
			continue
		}
		recipients = append(recipients, c)
	}
	h.roomsMu.RUnlock()

	for _, c := range recipients {
		for subID, t := range c.subs {
			if t == topic {
				c.sendFrame(dto.Frame{Command: dto.CommandMessage, Destination: topic, ID: subID, Body: payload})
			}
		}
	}
}

// --- 公共方法 ---

// Register 请求 Hub 注册客户端。Hub 已停止时返回 false。
func (h *Hub) Register(c *Client) bool {
	select {
	case h.messageChan <- HubMessage{Type: msgRegister, Client: c}:
		return true
	case <-h.done:
		return false
	}
}

// GetActiveRoomIDs 返回本实例上有连接的房间。
func (h *Hub) GetActiveRoomIDs() []string {
	h.roomsMu.RLock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.roomsMu.RUnlock()
	sort.Strings(ids)
	return ids
}

// ClientCount 返回房间在本实例上的连接数。
func (h *Hub) ClientCount(roomID string) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID])
}

// StopAllSubscriptions 取消所有 Redis 订阅并停止主循环。
func (h *Hub) StopAllSubscriptions() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.subsMu.Lock()
		subs := h.roomSubs
		h.roomSubs = make(map[string]func())
		h.subsMu.Unlock()
		for roomID, stop := range subs {
			stop()
			h.log.WithField("room_id", roomID).Debug("Room subscription stopped")
		}
		h.log.Info("All room subscriptions stopped")
	})
}
