// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"net/http"

	"reconnect_server/internal/config"
	"reconnect_server/internal/handler"
	"reconnect_server/internal/infrastructure/logger"
	"reconnect_server/internal/infrastructure/middleware"
	"reconnect_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 创建配置完成的 Gin 引擎
// 顺序：日志和恢复中间件、CORS、可选 TLS 重定向、静态头像目录、业务路由
func Init(cfg *config.Config, handlers *handler.Handlers, identity middleware.IdentityResolver, metrics http.Handler) *gin.Engine {
	if cfg.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	// 不使用 gin.Default() 以便完全控制中间件
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// SSL 由 Nginx 终结时保持关闭
	if cfg.MainConfig.TLSRedirect {
		engine.Use(middleware.TlsHandler(cfg.MainConfig.Host, cfg.MainConfig.Port))
	}

	// /static/avatars -> 头像文件目录
	engine.Static("/static/avatars", cfg.StaticSrcConfig.StaticAvatarPath)

	rt := router.NewRouter(handlers, middleware.JWTAuth(identity), metrics)
	rt.RegisterRoutes(engine)

	return engine
}
