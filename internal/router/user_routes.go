package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes 注册用户资料相关路由
func (rt *Router) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", rt.handlers.User.SearchUsers)
	rg.GET("/:id", rt.handlers.User.GetUser)
	rg.PUT("/me", rt.handlers.User.UpdateProfile)
	rg.POST("/me/avatar", rt.handlers.User.UploadAvatar)
}
