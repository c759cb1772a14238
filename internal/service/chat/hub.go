package chat

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"reconnect_server/internal/infrastructure/metrics"
)

// Hub 本进程的连接和会话频道
// 频道成员只用于推送，不参与访问控制
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*UserConn
	channels map[uint]map[string]*UserConn
	users    map[uint]int // 用户在本进程的连接数
	metrics  *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		conns:    make(map[string]*UserConn),
		channels: make(map[uint]map[string]*UserConn),
		users:    make(map[uint]int),
		metrics:  m,
	}
}

// Register 返回是否为该用户的第一条连接
func (h *Hub) Register(c *UserConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
	h.users[c.UserID]++
	return h.users[c.UserID] == 1
}

// Unregister 从所有频道移除连接，返回是否为该用户的最后一条连接
func (h *Hub) Unregister(c *UserConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.ID]; !ok {
		return false
	}
	delete(h.conns, c.ID)
	for convID := range c.channels {
		h.removeLocked(convID, c)
	}
	h.users[c.UserID]--
	if h.users[c.UserID] <= 0 {
		delete(h.users, c.UserID)
		return true
	}
	return false
}

func (h *Hub) Join(convID uint, c *UserConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[convID]
	if !ok {
		members = make(map[string]*UserConn)
		h.channels[convID] = members
	}
	members[c.ID] = c
	c.channels[convID] = struct{}{}
}

func (h *Hub) Leave(convID uint, c *UserConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(convID, c)
}

func (h *Hub) removeLocked(convID uint, c *UserConn) {
	delete(c.channels, convID)
	members := h.channels[convID]
	delete(members, c.ID)
	if len(members) == 0 {
		delete(h.channels, convID)
	}
}

// Deliver 推送 newMessage 给频道内除发起连接外的所有连接
// 发送缓冲已满的连接直接丢弃该帧
func (h *Hub) Deliver(b *Broadcast) {
	payload := b.Payload
	frame, err := json.Marshal(ServerEvent{Event: EventNewMessage, ConversationID: b.ConversationID, Data: &payload})
	if err != nil {
		zap.L().Error("marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*UserConn, 0, len(h.channels[b.ConversationID]))
	for id, c := range h.channels[b.ConversationID] {
		if id != b.OriginConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.trySend(frame) {
			h.metrics.Pushed()
		} else {
			h.metrics.Dropped()
			zap.L().Warn("drop frame for slow connection", zap.String("conn", c.ID), zap.Uint("user", c.UserID))
		}
	}
}

// CloseAll 关闭全部连接，读协程退出后各自注销
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*UserConn, 0, len(h.conns))
	for _, c := range h.conns {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.close()
	}
}

