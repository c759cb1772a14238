package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes 注册认证相关路由
// 注册和登录公开，其余需要 token
func (rt *Router) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", rt.handlers.Auth.Register)
	rg.POST("/login", rt.handlers.Auth.Login)

	rg.POST("/logout", rt.auth, rt.handlers.Auth.Logout)
	rg.GET("/me", rt.auth, rt.handlers.Auth.Me)
	rg.DELETE("/me", rt.auth, rt.handlers.Auth.DeleteAccount)
	rg.PUT("/password", rt.auth, rt.handlers.Auth.ChangePassword)
}
