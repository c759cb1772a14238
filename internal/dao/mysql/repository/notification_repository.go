package repository

import (
	"context"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知 Repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return wrapDBErrorf(err, "创建通知 user=%d", n.UserID)
	}
	return nil
}

// ListByUser 最新的在前
func (r *notificationRepository) ListByUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询通知 user=%d", userID)
	}
	return list, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "标记通知已读 id=%d", id)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "全部标记已读 user=%d", userID)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "删除通知 id=%d", id)
	}
	return res.RowsAffected, nil
}

// ExistsForUser 通知存在且属于该用户
func (r *notificationRepository) ExistsForUser(ctx context.Context, id, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "查询通知 id=%d", id)
	}
	return count > 0, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "统计未读通知 user=%d", userID)
	}
	return count, nil
}
