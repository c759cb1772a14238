// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"net/http"

	"reconnect_server/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合和鉴权中间件
type Router struct {
	handlers *handler.Handlers
	auth     gin.HandlerFunc
	metrics  http.Handler
}

// NewRouter 创建路由管理器
// auth 为 JWT 中间件，metrics 为 prometheus 导出端点，可为 nil
func NewRouter(handlers *handler.Handlers, auth gin.HandlerFunc, metrics http.Handler) *Router {
	return &Router{handlers: handlers, auth: auth, metrics: metrics}
}

// RegisterRoutes 注册所有路由
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.RegisterAuthRoutes(r.Group("/auth"))

	// 需要认证的接口
	private := r.Group("")
	private.Use(rt.auth)
	rt.RegisterUserRoutes(private.Group("/users"))
	rt.RegisterContactRoutes(private.Group("/contacts"))
	rt.RegisterMessageRoutes(private.Group("/conversations"))
	rt.RegisterNotificationRoutes(private.Group("/notifications"))

	// 握手鉴权由网关完成
	rt.RegisterWebSocketRoutes(r.Group(""))

	if rt.metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.metrics))
	}
}
