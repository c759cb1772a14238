// Package handler 提供 HTTP 请求处理器
// 本文件处理通知收件箱
package handler

import (
	"reconnect_server/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知请求处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建通知处理器实例
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 本人的通知，新的在前
// GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.notificationSvc.GetByUser(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UnreadCount 未读通知数
// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.notificationSvc.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkAsRead 标记单条通知已读
// PUT /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notificationSvc.MarkAsRead(c.Request.Context(), id, uid); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// MarkAllAsRead 全部标记已读
// PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.notificationSvc.MarkAllAsRead(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Delete 删除通知
// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notificationSvc.Delete(c.Request.Context(), id, uid); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
