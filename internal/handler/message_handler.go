// Package handler 提供 HTTP 请求处理器
// 本文件处理会话和消息
package handler

import (
	"context"

	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessagePublisher 把已落库的消息推给在线连接
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *respond.MessageRespond) error
}

// MessageHandler 会话和消息请求处理器
type MessageHandler struct {
	messageSvc service.MessageService
	publisher  MessagePublisher
	metrics    *metrics.Metrics
}

// NewMessageHandler 创建消息处理器实例
// publisher 为 nil 时 REST 发送的消息不做实时推送
func NewMessageHandler(messageSvc service.MessageService, publisher MessagePublisher, m *metrics.Metrics) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc, publisher: publisher, metrics: m}
}

// ListConversations 会话列表，按最近更新排序
// GET /conversations
func (h *MessageHandler) ListConversations(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.messageSvc.ListConversations(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// FindOrCreateConversation 查找或创建与某个用户的私聊
// POST /conversations
func (h *MessageHandler) FindOrCreateConversation(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.messageSvc.FindOrCreateConversation(c.Request.Context(), uid, req.UserID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetMessages 会话内全部消息，同时把对方的消息标记为已读
// GET /conversations/:id/messages
func (h *MessageHandler) GetMessages(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.messageSvc.GetMessages(c.Request.Context(), convID, uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SendMessage 通过 REST 发送消息
// POST /conversations/:id/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	msg, err := h.messageSvc.SendMessage(c.Request.Context(), convID, uid, req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	h.metrics.MessageSent("rest")

	// 消息已落库，推送失败不影响本次请求
	if h.publisher != nil {
		if err := h.publisher.PublishMessage(c.Request.Context(), msg); err != nil {
			zap.L().Warn("publish rest message failed",
				zap.Uint("conversation", convID), zap.Int64("message", msg.ID), zap.Error(err))
		}
	}
	HandleSuccess(c, msg)
}

// MarkRead 把对方发来的未读消息标记为已读
// PATCH /conversations/:id/messages/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.messageSvc.MarkRead(c.Request.Context(), convID, uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
