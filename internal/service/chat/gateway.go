package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/pkg/errorx"
	"reconnect_server/pkg/util/jwt"
)

// handleTimeout 单个客户端事件的处理时限
const handleTimeout = 10 * time.Second

// MessageSender 网关需要的消息能力
type MessageSender interface {
	SendMessage(ctx context.Context, conversationID, senderID uint, content string) (*respond.MessageRespond, error)
	CheckParticipant(ctx context.Context, conversationID, userID uint) error
}

// IdentityResolver 握手时解析 token
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*jwt.Claims, error)
}

// gorilla/websocket 默认拦截跨域请求，跨域由 HTTP 层的 cors 配置负责
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway 实时推送网关
type Gateway struct {
	hub      *Hub
	broker   MessageBroker
	messages MessageSender
	identity IdentityResolver
	presence myredis.AsyncCacheService // 可为 nil
	metrics  *metrics.Metrics
}

func NewGateway(
	hub *Hub,
	broker MessageBroker,
	messages MessageSender,
	identity IdentityResolver,
	presence myredis.AsyncCacheService,
	m *metrics.Metrics,
) *Gateway {
	return &Gateway{
		hub:      hub,
		broker:   broker,
		messages: messages,
		identity: identity,
		presence: presence,
		metrics:  m,
	}
}

// Run 启动 broker 消费循环，阻塞到 ctx 结束
func (g *Gateway) Run(ctx context.Context) error {
	return g.broker.Start(ctx)
}

// Shutdown 断开所有连接并关闭 broker
func (g *Gateway) Shutdown() error {
	g.hub.CloseAll()
	return g.broker.Close()
}

// PublishMessage REST 发送的消息推给所有已加入频道的连接
func (g *Gateway) PublishMessage(ctx context.Context, msg *respond.MessageRespond) error {
	return g.broker.Publish(ctx, &Broadcast{ConversationID: msg.ConversationID, Payload: PayloadFrom(msg)})
}

// ServeWS 鉴权通过后升级为 WebSocket
// token 取自 ?token= 或 Authorization: Bearer
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := g.identity.ResolveIdentity(r.Context(), bearerToken(r))
	if err != nil {
		writeHandshakeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := newUserConn(conn, claims.UserID)
	if g.hub.Register(c) {
		g.markOnline(c.UserID, true)
	}
	g.metrics.ConnOpened()
	zap.L().Info("ws连接成功", zap.Uint("user", c.UserID), zap.String("conn", c.ID))

	go c.Write()
	go func() {
		defer g.disconnect(c)
		c.Read(func(ev ClientEvent) { g.handle(c, ev) })
	}()
}

// ServeHTTP 实现 http.Handler
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.ServeWS(w, r)
}

func (g *Gateway) disconnect(c *UserConn) {
	c.close()
	if g.hub.Unregister(c) {
		g.markOnline(c.UserID, false)
	}
	g.metrics.ConnClosed()
	zap.L().Info("ws连接断开", zap.Uint("user", c.UserID), zap.String("conn", c.ID))
}

func (g *Gateway) handle(c *UserConn, ev ClientEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch ev.Event {
	case EventJoin:
		if err := g.messages.CheckParticipant(ctx, ev.ConversationID, c.UserID); err != nil {
			c.sendEvent(errorEvent(EventError, ev.ConversationID, err))
			return
		}
		g.hub.Join(ev.ConversationID, c)
		c.sendEvent(ServerEvent{Event: EventJoined, ConversationID: ev.ConversationID})

	case EventLeave:
		g.hub.Leave(ev.ConversationID, c)
		c.sendEvent(ServerEvent{Event: EventLeft, ConversationID: ev.ConversationID})

	case EventSendMessage:
		msg, err := g.messages.SendMessage(ctx, ev.ConversationID, c.UserID, ev.Text)
		if err != nil {
			c.sendEvent(errorEvent(EventMessageError, ev.ConversationID, err))
			return
		}
		g.metrics.MessageSent("ws")
		payload := PayloadFrom(msg)
		if err := g.broker.Publish(ctx, &Broadcast{ConversationID: ev.ConversationID, OriginConnID: c.ID, Payload: payload}); err != nil {
			// 消息已落库，推送失败只影响在线投递
			zap.L().Error("publish broadcast", zap.Int64("message", msg.ID), zap.Error(err))
		}
		c.sendEvent(ServerEvent{Event: EventMessageSent, ConversationID: ev.ConversationID, Data: &payload})

	default:
		c.sendEvent(ServerEvent{Event: EventError, Code: errorx.CodeInvalidParam, Error: "未知事件: " + ev.Event})
	}
}

// markOnline 在线状态异步写入 Redis
func (g *Gateway) markOnline(userID uint, online bool) {
	if g.presence == nil {
		return
	}
	member := strconv.FormatUint(uint64(userID), 10)
	g.presence.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		var err error
		if online {
			err = g.presence.AddToSet(ctx, myredis.OnlineUsersKey, member)
		} else {
			err = g.presence.RemoveFromSet(ctx, myredis.OnlineUsersKey, member)
		}
		if err != nil {
			zap.L().Warn("update presence failed", zap.Uint("user", userID), zap.Bool("online", online), zap.Error(err))
		}
	})
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// writeHandshakeError 认证失败返回 401，黑名单查询失败返回 503
func writeHandshakeError(w http.ResponseWriter, err error) {
	status, code := http.StatusUnauthorized, errorx.CodeUnauthorized
	if errorx.GetCode(err) != errorx.CodeUnauthorized {
		status, code = http.StatusServiceUnavailable, errorx.CodeServerBusy
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": code,
		"msg":  errorMessage(err),
		"data": nil,
	})
}

func errorEvent(event string, convID uint, err error) ServerEvent {
	return ServerEvent{Event: event, ConversationID: convID, Code: errorx.GetCode(err), Error: errorMessage(err)}
}

// errorMessage 业务错误只暴露 Msg，不暴露底层原因
func errorMessage(err error) string {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Msg
	}
	return errorx.ErrServerBusy.Msg
}
