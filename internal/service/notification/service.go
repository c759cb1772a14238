// Package notification 负责社交事件通知的写入和收件箱管理
// 写入由联系人状态机在迁移提交后触发，读取由客户端轮询
package notification

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"reconnect_server/internal/dao/mysql/repository"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/errorx"
)

// notificationService 通知收件箱业务逻辑实现
type notificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	policy        dbcall.Policy
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	policy dbcall.Policy,
) *notificationService {
	return &notificationService{notifications: notifications, users: users, policy: policy}
}

// GetByUser 用户全部通知，最新在前，附带触发者公开资料
func (s *notificationService) GetByUser(ctx context.Context, userID uint) ([]respond.NotificationRespond, error) {
	var rows []model.Notification
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		rows, err = s.notifications.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		zap.L().Error("List notifications error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	actors := s.loadActors(ctx, rows)
	list := make([]respond.NotificationRespond, 0, len(rows))
	for _, n := range rows {
		item := respond.NotificationRespond{
			ID:          n.ID,
			Type:        n.Type,
			Title:       n.Title,
			Body:        n.Body,
			IsRead:      n.IsRead,
			ReferenceID: n.ReferenceID,
			CreatedAt:   n.CreatedAt,
		}
		if id, ok := actorID(n); ok {
			if actor, found := actors[id]; found {
				item.Actor = &actor
			}
		}
		list = append(list, item)
	}
	return list, nil
}

// loadActors 批量查询触发者，失败时列表照常返回，只是不带资料
func (s *notificationService) loadActors(ctx context.Context, rows []model.Notification) map[uint]respond.PublicUser {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0, len(rows))
	for _, n := range rows {
		if id, ok := actorID(n); ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	actors := make(map[uint]respond.PublicUser, len(ids))
	if len(ids) == 0 {
		return actors
	}

	var users []model.UserInfo
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		users, err = s.users.FindByIDs(ctx, ids)
		return err
	})
	if err != nil {
		zap.L().Warn("Load notification actors error", zap.Error(err))
		return actors
	}
	for _, u := range users {
		actors[u.ID] = respond.PublicUser{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Avatar: u.Avatar}
	}
	return actors
}

func actorID(n model.Notification) (uint, bool) {
	id, err := strconv.ParseUint(n.Body, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Create 直接写入一条通知
func (s *notificationService) Create(ctx context.Context, n *model.Notification) error {
	err := s.policy.Write(ctx, func(ctx context.Context) error {
		return s.notifications.Create(ctx, n)
	})
	if err != nil {
		zap.L().Error("Create notification error", zap.Uint("user", n.UserID), zap.String("type", n.Type), zap.Error(err))
		return errorx.ErrServerBusy
	}
	return nil
}

// MarkAsRead 标记单条已读，不属于该用户时返回 NotFoundOrForbidden
// 已读的通知再次标记视为成功
func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uint) error {
	err := s.mutateOne(ctx, "mark read", id, userID, s.notifications.MarkRead)
	if !errors.Is(err, errorx.ErrNotFoundOrForbidden) {
		return err
	}
	var exists bool
	rerr := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		exists, err = s.notifications.ExistsForUser(ctx, id, userID)
		return err
	})
	if rerr != nil {
		zap.L().Error("Notification lookup error", zap.Uint("id", id), zap.Error(rerr))
		return errorx.ErrServerBusy
	}
	if exists {
		return nil
	}
	return err
}

// Delete 删除单条通知
func (s *notificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.mutateOne(ctx, "delete", id, userID, s.notifications.Delete)
}

func (s *notificationService) mutateOne(
	ctx context.Context,
	op string,
	id, userID uint,
	fn func(ctx context.Context, id, userID uint) (int64, error),
) error {
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = fn(ctx, id, userID)
		return err
	})
	if err != nil {
		zap.L().Error("Notification update error", zap.String("op", op), zap.Uint("id", id), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if affected == 0 {
		return errorx.ErrNotFoundOrForbidden
	}
	return nil
}

// MarkAllAsRead 全部标记已读，返回受影响条数
func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uint) (*respond.AffectedRespond, error) {
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = s.notifications.MarkAllRead(ctx, userID)
		return err
	})
	if err != nil {
		zap.L().Error("Mark all notifications read error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.AffectedRespond{Affected: affected}, nil
}

// UnreadCount 未读条数
func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (*respond.UnreadCountRespond, error) {
	var count int64
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		count, err = s.notifications.CountUnread(ctx, userID)
		return err
	})
	if err != nil {
		zap.L().Error("Count unread notifications error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.UnreadCountRespond{Count: count}, nil
}
