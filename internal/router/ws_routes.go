package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 入口
// 请求示例: ws://host:port/ws?token=xxx
func (rt *Router) RegisterWebSocketRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", rt.handlers.Ws.Connect)
}
