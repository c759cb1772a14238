// Package handler 提供 HTTP 请求处理器
// 本文件处理注册、登录和注销
package handler

import (
	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/infrastructure/middleware"
	"reconnect_server/internal/service"
	"reconnect_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证请求处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 邮箱注册
// POST /auth/register
// 请求体: request.RegisterRequest
// 响应: respond.ProfileRespond
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Login 邮箱密码登录
// POST /auth/login
// 响应: respond.LoginRespond (access token + 用户资料)
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Logout 注销当前 token
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		HandleError(c, errorx.ErrUnauthorized)
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Me 当前用户完整资料
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.authSvc.Me(c.Request.Context(), uid)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ChangePassword 修改密码
// PUT /auth/password
// 请求体: request.ChangePasswordRequest
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.authSvc.ChangePassword(c.Request.Context(), uid, req); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// DeleteAccount 注销账号
// DELETE /auth/me
// 请求体: request.DeleteAccountRequest
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		HandleError(c, errorx.ErrUnauthorized)
		return
	}
	var req request.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.authSvc.DeleteAccount(c.Request.Context(), claims, req); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
