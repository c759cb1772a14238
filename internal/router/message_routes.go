package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册会话和消息相关路由
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Message
	rg.GET("", h.ListConversations)
	rg.POST("", h.FindOrCreateConversation)
	rg.GET("/:id/messages", h.GetMessages)
	rg.POST("/:id/messages", h.SendMessage)
	rg.PATCH("/:id/messages/read", h.MarkRead)
}
