package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes 注册通知收件箱路由
func (rt *Router) RegisterNotificationRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Notification
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.PUT("/read-all", h.MarkAllAsRead)
	rg.PUT("/:id/read", h.MarkAsRead)
	rg.DELETE("/:id", h.Delete)
}
