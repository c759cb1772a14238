package notification

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"reconnect_server/internal/dao/mysql/repository"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/contact"
	"reconnect_server/internal/service/dbcall"
)

// TypeFor 关系状态迁移到通知类型的映射
// 撤回申请和删除好友不产生通知
func TypeFor(operation, outcome string) (string, bool) {
	switch {
	case operation == contact.OpSendRequest && outcome == contact.OutcomePending:
		return model.NotificationContactRequest, true
	case operation == contact.OpSendRequest && outcome == contact.OutcomeAutoAccepted:
		return model.NotificationContactRequest, true
	case operation == contact.OpAccept:
		return model.NotificationFriendAccept, true
	case operation == contact.OpDecline:
		return model.NotificationFriendDecline, true
	default:
		return "", false
	}
}

var titleFormats = map[string]string{
	model.NotificationContactRequest: "%s 向你发送了好友申请",
	model.NotificationFriendAccept:   "%s 接受了你的好友申请",
	model.NotificationFriendDecline:  "%s 拒绝了你的好友申请",
}

// Emitter 把关系状态迁移写成通知，实现 contact.Notifier
type Emitter struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	policy        dbcall.Policy
	metrics       *metrics.Metrics
}

func NewEmitter(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	policy dbcall.Policy,
	m *metrics.Metrics,
) *Emitter {
	return &Emitter{notifications: notifications, users: users, policy: policy, metrics: m}
}

var _ contact.Notifier = (*Emitter)(nil)

// Notify 为事件的对方写入一条通知
func (e *Emitter) Notify(ctx context.Context, ev contact.Event) error {
	kind, ok := TypeFor(ev.Operation, ev.Outcome)
	if !ok {
		return nil
	}

	n := &model.Notification{
		UserID:      ev.TargetID,
		Type:        kind,
		Title:       fmt.Sprintf(titleFormats[kind], e.actorName(ctx, ev.ActorID)),
		Body:        strconv.FormatUint(uint64(ev.ActorID), 10),
		ReferenceID: ev.Edge.ID,
	}
	err := e.policy.Write(ctx, func(ctx context.Context) error {
		return e.notifications.Create(ctx, n)
	})
	if err != nil {
		return err
	}
	e.metrics.NotificationCreated(kind)
	return nil
}

// actorName 查不到用户时退化为通用称呼，不阻塞通知写入
func (e *Emitter) actorName(ctx context.Context, actorID uint) string {
	var user *model.UserInfo
	err := e.policy.Read(ctx, func(ctx context.Context) (err error) {
		user, err = e.users.FindByID(ctx, actorID)
		return err
	})
	if err != nil || user == nil {
		zap.L().Warn("Resolve notification actor failed", zap.Uint("actor", actorID), zap.Error(err))
		return "有用户"
	}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return "有用户"
}
