package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"reconnect_server/pkg/constants"
	"reconnect_server/pkg/errorx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// UserConn 一条 WebSocket 连接，同一用户可以有多条
type UserConn struct {
	ID       string
	UserID   uint
	Conn     *websocket.Conn
	SendBack chan []byte // 给前端

	channels  map[uint]struct{} // 由 Hub.mu 保护
	done      chan struct{}
	closeOnce sync.Once
}

func newUserConn(conn *websocket.Conn, userID uint) *UserConn {
	return &UserConn{
		ID:       uuid.NewString(),
		UserID:   userID,
		Conn:     conn,
		SendBack: make(chan []byte, constants.CHANNEL_SIZE),
		channels: make(map[uint]struct{}),
		done:     make(chan struct{}),
	}
}

// trySend 非阻塞入队，连接已关闭或缓冲已满返回 false
// SendBack 从不关闭，关闭由 done 表达
func (c *UserConn) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.SendBack <- frame:
		return true
	default:
		return false
	}
}

func (c *UserConn) sendEvent(ev ServerEvent) {
	frame, err := json.Marshal(ev)
	if err != nil {
		zap.L().Error("marshal server event", zap.Error(err))
		return
	}
	if !c.trySend(frame) {
		zap.L().Warn("drop reply for slow connection", zap.String("conn", c.ID), zap.String("event", ev.Event))
	}
}

func (c *UserConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

// Read 读取客户端帧并交给 handle，连接断开时返回
func (c *UserConn) Read(handle func(ev ClientEvent)) {
	c.Conn.SetReadLimit(constants.WS_READ_LIMIT)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws read error", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		var ev ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.sendEvent(ServerEvent{Event: EventError, Code: errorx.CodeInvalidParam, Error: "无法解析的消息"})
			continue
		}
		handle(ev)
	}
}

// Write 把 SendBack 中的帧写给前端并定时 ping
func (c *UserConn) Write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.SendBack:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				zap.L().Warn("ws write error", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
