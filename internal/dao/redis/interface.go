// Package redis 定义缓存服务接口及其 Redis 实现
// Service 层依赖此接口而非具体 Redis 客户端
package redis

import (
	"context"
	"time"
)

// CacheService 缓存服务接口
type CacheService interface {
	// ==================== String 操作 ====================

	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get 获取键对应的值（键不存在返回空字符串和 nil）
	Get(ctx context.Context, key string) (string, error)
	// Exists 键是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// ==================== Key 操作 ====================

	// Delete 删除键，可一次删除多个，不存在的键忽略
	Delete(ctx context.Context, keys ...string) error

	// ==================== Set 集合操作 ====================

	// AddToSet 向集合添加成员
	AddToSet(ctx context.Context, key string, members ...interface{}) error
	// GetSetMembers 获取集合中的所有成员
	GetSetMembers(ctx context.Context, key string) ([]string, error)
	// RemoveFromSet 从集合中移除成员
	RemoveFromSet(ctx context.Context, key string, members ...interface{}) error
}

// AsyncCacheService 异步缓存服务接口
// 提供异步任务提交能力，用于不阻塞请求路径的缓存更新
type AsyncCacheService interface {
	CacheService
	// SubmitTask 提交异步缓存任务，队列满时同步执行
	SubmitTask(action func())
}

// 缓存键
const (
	// TokenBlacklistPrefix 已注销 token 的 jti，值无意义，TTL 为 token 剩余有效期
	TokenBlacklistPrefix = "token_blacklist:"
	// DeletedUserPrefix 已注销账号的用户 id，TTL 为 token 有效期，期间该用户的 token 全部失效
	DeletedUserPrefix = "deleted_user:"
	// ConversationListPrefix 用户会话列表缓存
	ConversationListPrefix = "conversation_list:"
	// OnlineUsersKey 在线用户集合
	OnlineUsersKey = "online_users"
)
