// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"net/http"

	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/service"
)

// Handlers 聚合所有 Handler 实例，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Contact      *ContactHandler
	Message      *MessageHandler
	Notification *NotificationHandler
	Ws           *WsHandler
}

// Gateway 同时承担 websocket 入口和 REST 消息推送
type Gateway interface {
	http.Handler
	MessagePublisher
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, gateway Gateway, m *metrics.Metrics) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Contact:      NewContactHandler(svc.Contact),
		Message:      NewMessageHandler(svc.Message, gateway, m),
		Notification: NewNotificationHandler(svc.Notification),
		Ws:           NewWsHandler(gateway),
	}
}
