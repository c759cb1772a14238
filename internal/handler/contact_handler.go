// Package handler 提供 HTTP 请求处理器
// 本文件处理好友申请和好友关系
package handler

import (
	"reconnect_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ContactHandler 联系人请求处理器
type ContactHandler struct {
	contactSvc service.ContactService
}

// NewContactHandler 创建联系人处理器实例
func NewContactHandler(contactSvc service.ContactService) *ContactHandler {
	return &ContactHandler{contactSvc: contactSvc}
}

// SendRequest 向 :id 用户发出好友申请，对方已申请过自己时直接成为好友
// POST /contacts/:id/request
func (h *ContactHandler) SendRequest(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.contactSvc.SendRequest(c.Request.Context(), uid, target)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Accept 接受申请，:id 为关系记录 id
// POST /contacts/:id/accept
func (h *ContactHandler) Accept(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	edgeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.contactSvc.AcceptRequest(c.Request.Context(), edgeID, uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Decline 拒绝申请
// POST /contacts/:id/decline
func (h *ContactHandler) Decline(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	edgeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.contactSvc.DeclineRequest(c.Request.Context(), edgeID, uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// CancelSent 撤回自己发出的申请
// DELETE /contacts/sent/:id
func (h *ContactHandler) CancelSent(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	edgeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contactSvc.CancelSentRequest(c.Request.Context(), edgeID, uid); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// RemoveFriend 解除好友关系
// DELETE /contacts/:id
func (h *ContactHandler) RemoveFriend(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	edgeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contactSvc.RemoveFriend(c.Request.Context(), edgeID, uid); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Status 当前用户与 :id 用户的关系
// GET /contacts/:id/status
func (h *ContactHandler) Status(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.contactSvc.GetRelationStatus(c.Request.Context(), uid, other)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Incoming 收到的待处理申请
// GET /contacts/requests
func (h *ContactHandler) Incoming(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.contactSvc.ListIncoming(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Sent 自己发出的待处理申请
// GET /contacts/sent
func (h *ContactHandler) Sent(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.contactSvc.ListSent(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Friends 好友列表
// GET /contacts/friends
func (h *ContactHandler) Friends(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.contactSvc.ListFriends(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
