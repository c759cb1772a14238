// Package handler 提供 HTTP 请求处理器
// 本文件处理用户资料相关的 API 请求
package handler

import (
	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/service"
	"reconnect_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户请求处理器
// 通过构造函数注入 UserService
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建用户处理器实例
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetUser 查看用户资料，非本人隐藏联系方式
// GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.userSvc.GetUser(c.Request.Context(), uid, target)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateProfile 修改本人资料
// PUT /users/me
// 请求体: request.UpdateProfileRequest，缺省字段不修改
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.UpdateProfile(c.Request.Context(), uid, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UploadAvatar 上传头像
// POST /users/me/avatar (multipart, 字段 avatar)
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "请选择头像文件"))
		return
	}
	data, err := h.userSvc.UploadAvatar(c.Request.Context(), uid, file)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SearchUsers 按资料字段检索可见用户
// GET /users/search?first_name=&city=&page=&page_size=
func (h *UserHandler) SearchUsers(c *gin.Context) {
	var req request.SearchUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.SearchUsers(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
