package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenSubject = "access_token"

// ErrInvalidSubject token 不是 access token
var ErrInvalidSubject = errors.New("token subject is not access_token")

// Claims 自定义 JWT 声明
// RegisteredClaims.ID 即 jti，用于注销时写入黑名单
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager 负责签发和校验 token
type Manager struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewManager 创建 token 管理器
func NewManager(secret string, accessExpiryMinutes int, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: time.Duration(accessExpiryMinutes) * time.Minute,
		issuer: issuer,
		now:    time.Now,
	}
}

// GenerateAccessToken 签发 Access Token，返回 token 字符串和声明（含 jti）
func (m *Manager) GenerateAccessToken(userID uint) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   accessTokenSubject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken 解析并验证签名、有效期和 subject
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Subject != accessTokenSubject {
		return nil, ErrInvalidSubject
	}
	return claims, nil
}

// Expiry 新签发 token 的有效期
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Remaining token 剩余有效期，已过期返回 0
func (m *Manager) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Sub(m.now())
	if d < 0 {
		return 0
	}
	return d
}
