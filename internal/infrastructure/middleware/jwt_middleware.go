package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"reconnect_server/pkg/constants"
	"reconnect_server/pkg/errorx"
	"reconnect_server/pkg/util/jwt"
)

// IdentityResolver 校验 token 并检查是否已注销
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*jwt.Claims, error)
}

// JWTAuth JWT 认证中间件
// 验证 Access Token 并将用户信息存入上下文
func JWTAuth(identity IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "请先登录")
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Token 格式错误，请使用 Bearer Token")
			return
		}

		// 3. 验证签名、有效期、subject 和黑名单
		claims, err := identity.ResolveIdentity(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if errorx.GetCode(err) != errorx.CodeUnauthorized {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"code": errorx.CodeServerBusy,
					"msg":  errorx.ErrServerBusy.Msg,
				})
				return
			}
			abortUnauthorized(c, "Token 已过期或无效，请重新登录")
			return
		}

		// 4. 将用户信息存入上下文，供后续 Handler 使用
		c.Set(constants.CTX_USER_ID_KEY, claims.UserID)
		c.Set(constants.CTX_TOKEN_CLAIM_KEY, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

// CurrentUserID 读取 JWTAuth 写入的用户 id
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(constants.CTX_USER_ID_KEY)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// CurrentClaims 读取 JWTAuth 写入的 token 声明
func CurrentClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(constants.CTX_TOKEN_CLAIM_KEY)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
