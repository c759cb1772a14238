// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"reconnect_server/internal/config"
	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/service/auth"
	"reconnect_server/internal/service/contact"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/internal/service/message"
	"reconnect_server/internal/service/notification"
	"reconnect_server/internal/service/user"
	"reconnect_server/pkg/util/jwt"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过此结构取得各自的 Service
type Services struct {
	Auth         AuthService
	User         UserService
	Contact      ContactService
	Message      MessageService
	Notification NotificationService
}

// Deps 构建 Services 所需的基础设施
type Deps struct {
	Config  *config.Config
	Repos   *repository.Repositories
	Cache   myredis.AsyncCacheService
	Tokens  *jwt.Manager
	IDs     message.IDGenerator
	Metrics *metrics.Metrics
}

// NewServices 创建并注入所有 Service 实例
// 联系人状态机通过 Notifier 接口驱动通知写入
func NewServices(d Deps) (*Services, error) {
	policy := dbcall.FromConfig(&d.Config.MysqlConfig)

	emitter := notification.NewEmitter(d.Repos.Notification, d.Repos.User, policy, d.Metrics)
	messageSvc, err := message.NewMessageService(
		d.Repos.Conversation,
		d.Repos.Message,
		d.Repos.User,
		d.IDs,
		policy,
		message.Options{
			Cache:               d.Cache,
			ListTTL:             d.Config.CacheConfig.ConversationListTTLDuration(),
			MembershipCacheSize: d.Config.CacheConfig.MembershipLRUSize,
		},
	)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:         auth.NewAuthService(d.Repos.User, d.Cache, d.Tokens, policy),
		User:         user.NewUserService(d.Repos.User, d.Config.StaticSrcConfig, policy),
		Contact:      contact.NewContactService(d.Repos.Contact, d.Repos.User, emitter, d.Cache, policy, d.Metrics),
		Message:      messageSvc,
		Notification: notification.NewNotificationService(d.Repos.Notification, d.Repos.User, policy),
	}, nil
}
