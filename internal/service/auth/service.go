// Package auth 提供注册、登录、注销和 token 身份解析
// 注销的 token 以 jti 写入 Redis 黑名单，TTL 为剩余有效期
package auth

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/internal/service/user"
	"reconnect_server/pkg/errorx"
	"reconnect_server/pkg/util/jwt"
)

// Service 认证服务实现
type Service struct {
	users  repository.UserRepository
	cache  myredis.CacheService // 缓存服务（依赖倒置）
	tokens *jwt.Manager
	policy dbcall.Policy
}

// NewAuthService 创建认证服务实例
func NewAuthService(users repository.UserRepository, cache myredis.CacheService, tokens *jwt.Manager, policy dbcall.Policy) *Service {
	return &Service{
		users:  users,
		cache:  cache,
		tokens: tokens,
		policy: policy,
	}
}

// Register 邮箱注册
func (s *Service) Register(ctx context.Context, req request.RegisterRequest) (*respond.ProfileRespond, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.findByEmail(ctx, email)
	if err == nil {
		return nil, errorx.New(errorx.CodeUserExist, "该邮箱已注册")
	}
	if !errorx.IsNotFound(err) {
		zap.L().Error("Check email error", zap.String("email", email), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	newUser := &model.UserInfo{
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		RawPassword: req.Password,
		IsVisible:   true,
	}
	err = s.policy.Write(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, newUser)
	})
	if err != nil {
		if errorx.IsConflict(err) {
			return nil, errorx.New(errorx.CodeUserExist, "该邮箱已注册")
		}
		zap.L().Error("Create user error", zap.String("email", email), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	zap.L().Info("user registered", zap.Uint("user", newUser.ID))
	return user.ToProfile(newUser), nil
}

// Login 邮箱密码登录，签发 access token
func (s *Service) Login(ctx context.Context, req request.LoginRequest) (*respond.LoginRespond, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeInvalidPassword, "邮箱或密码错误")
		}
		zap.L().Error("Find user by email error", zap.String("email", email), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !u.CheckPassword(req.Password) {
		return nil, errorx.New(errorx.CodeInvalidPassword, "邮箱或密码错误")
	}

	token, claims, err := s.tokens.GenerateAccessToken(u.ID)
	if err != nil {
		zap.L().Error("生成 Access Token 失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.LoginRespond{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        *user.ToProfile(u),
	}, nil
}

// Logout 把 token 加入黑名单直到自然过期
func (s *Service) Logout(ctx context.Context, claims *jwt.Claims) error {
	ttl := s.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, myredis.TokenBlacklistPrefix+claims.ID, "1", ttl); err != nil {
		zap.L().Error("Blacklist token error", zap.Uint("user", claims.UserID), zap.Error(err))
		return errorx.Wrap(err, errorx.CodeCacheError, "注销失败，请重试")
	}
	return nil
}

// ChangePassword 校验旧密码后写入新密码，已签发的 token 不受影响
func (s *Service) ChangePassword(ctx context.Context, userID uint, req request.ChangePasswordRequest) error {
	if err := s.verifyPassword(ctx, userID, req.OldPassword); err != nil {
		return err
	}
	hash, err := model.HashPassword(req.NewPassword)
	if err != nil {
		zap.L().Error("Hash password error", zap.Uint("user", userID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	err = s.policy.Write(ctx, func(ctx context.Context) error {
		return s.users.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		zap.L().Error("Update password error", zap.Uint("user", userID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	zap.L().Info("password changed", zap.Uint("user", userID))
	return nil
}

// DeleteAccount 确认密码后删除账号，该用户已签发的 token 全部失效
func (s *Service) DeleteAccount(ctx context.Context, claims *jwt.Claims, req request.DeleteAccountRequest) error {
	if err := s.verifyPassword(ctx, claims.UserID, req.Password); err != nil {
		return err
	}
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = s.users.DeleteAccount(ctx, claims.UserID)
		return err
	})
	if err != nil {
		zap.L().Error("Delete account error", zap.Uint("user", claims.UserID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if affected == 0 {
		return errorx.ErrUserNotExist
	}
	zap.L().Info("account deleted", zap.Uint("user", claims.UserID))

	uid := strconv.FormatUint(uint64(claims.UserID), 10)
	if err := s.cache.Delete(ctx, myredis.ConversationListPrefix+uid); err != nil {
		zap.L().Warn("Clear conversation list cache failed", zap.Uint("user", claims.UserID), zap.Error(err))
	}
	if err := s.cache.Set(ctx, myredis.DeletedUserPrefix+uid, "1", s.tokens.Expiry()); err != nil {
		zap.L().Error("Mark deleted user error", zap.Uint("user", claims.UserID), zap.Error(err))
		return errorx.Wrap(err, errorx.CodeCacheError, "账号已删除，token 注销失败")
	}
	return nil
}

// verifyPassword 密码不匹配返回 InvalidPassword
func (s *Service) verifyPassword(ctx context.Context, userID uint, password string) error {
	var u *model.UserInfo
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		u, err = s.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.ErrUserNotExist
		}
		zap.L().Error("Find user for password check error", zap.Uint("user", userID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if !u.CheckPassword(password) {
		return errorx.New(errorx.CodeInvalidPassword, "密码错误")
	}
	return nil
}

// ResolveIdentity 解析 token 并检查黑名单
// HTTP 中间件和 websocket 握手共用
func (s *Service) ResolveIdentity(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUnauthorized, "认证失败，请重新登录")
	}
	revoked, err := s.cache.Exists(ctx, myredis.TokenBlacklistPrefix+claims.ID)
	if err != nil {
		zap.L().Error("Check token blacklist error", zap.Error(err))
		return nil, errorx.Wrap(err, errorx.CodeCacheError, "服务繁忙")
	}
	if revoked {
		return nil, errorx.New(errorx.CodeUnauthorized, "token 已注销，请重新登录")
	}
	deleted, err := s.cache.Exists(ctx, myredis.DeletedUserPrefix+strconv.FormatUint(uint64(claims.UserID), 10))
	if err != nil {
		zap.L().Error("Check deleted user error", zap.Error(err))
		return nil, errorx.Wrap(err, errorx.CodeCacheError, "服务繁忙")
	}
	if deleted {
		return nil, errorx.New(errorx.CodeUnauthorized, "账号已注销")
	}
	return claims, nil
}

// Me 当前用户完整资料
func (s *Service) Me(ctx context.Context, userID uint) (*respond.ProfileRespond, error) {
	var u *model.UserInfo
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		u, err = s.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrUserNotExist
		}
		zap.L().Error("Find current user error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return user.ToProfile(u), nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*model.UserInfo, error) {
	var u *model.UserInfo
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		u, err = s.users.FindByEmail(ctx, email)
		return err
	})
	return u, err
}
