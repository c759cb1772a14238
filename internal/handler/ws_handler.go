// Package handler 提供 HTTP 请求处理器
// 本文件把 /ws 交给实时网关
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WsHandler websocket 入口
// 握手鉴权在网关内完成，token 取自 ?token= 或 Authorization 头
type WsHandler struct {
	gateway http.Handler
}

// NewWsHandler 创建 websocket 处理器
func NewWsHandler(gateway http.Handler) *WsHandler {
	return &WsHandler{gateway: gateway}
}

// Connect 升级为 websocket 连接
// GET /ws?token=xxx
func (h *WsHandler) Connect(c *gin.Context) {
	h.gateway.ServeHTTP(c.Writer, c.Request)
}
