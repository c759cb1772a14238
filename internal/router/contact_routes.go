package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterContactRoutes 注册联系人相关路由
// /:id/request 和 /:id/status 中的 id 是对方用户 id，其余是关系记录 id
func (rt *Router) RegisterContactRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Contact
	rg.GET("/requests", h.Incoming)
	rg.GET("/sent", h.Sent)
	rg.GET("/friends", h.Friends)
	rg.GET("/:id/status", h.Status)
	rg.POST("/:id/request", h.SendRequest)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/decline", h.Decline)
	rg.DELETE("/sent/:id", h.CancelSent)
	rg.DELETE("/:id", h.RemoveFriend)
}
