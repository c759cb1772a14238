package repository

import (
	"context"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建联系人关系 Repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// FindBetween 按规范用户对键查找，两个方向的记录都能命中
func (r *contactRepository) FindBetween(ctx context.Context, userA, userB uint) (*model.ContactEdge, error) {
	var edge model.ContactEdge
	if err := r.db.WithContext(ctx).Where("pair_key = ?", model.PairKey(userA, userB)).First(&edge).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询联系人关系 %d<->%d", userA, userB)
	}
	return &edge, nil
}

// FindByID 按主键查找
func (r *contactRepository) FindByID(ctx context.Context, edgeID uint) (*model.ContactEdge, error) {
	var edge model.ContactEdge
	if err := r.db.WithContext(ctx).First(&edge, edgeID).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询联系人关系 id=%d", edgeID)
	}
	return &edge, nil
}

// Create 新建关系记录，pair_key 唯一索引冲突时返回 CodeConflict
func (r *contactRepository) Create(ctx context.Context, edge *model.ContactEdge) error {
	edge.PairKey = model.PairKey(edge.RequesterID, edge.RecipientID)
	if edge.Status == "" {
		edge.Status = model.ContactStatusPending
	}
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		return wrapDBErrorf(err, "创建联系人关系 %d->%d", edge.RequesterID, edge.RecipientID)
	}
	return nil
}

// AcceptPending 仅当记录处于 pending 且 recipientID 为接收人时才生效
func (r *contactRepository) AcceptPending(ctx context.Context, edgeID, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ContactEdge{}).
		Where("id = ? AND status = ? AND recipient_id = ?", edgeID, model.ContactStatusPending, recipientID).
		Update("status", model.ContactStatusAccepted)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "接受好友申请 id=%d", edgeID)
	}
	return res.RowsAffected, nil
}

// DeletePendingByRecipient 接收人拒绝申请
func (r *contactRepository) DeletePendingByRecipient(ctx context.Context, edgeID, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND recipient_id = ?", edgeID, model.ContactStatusPending, recipientID).
		Delete(&model.ContactEdge{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "拒绝好友申请 id=%d", edgeID)
	}
	return res.RowsAffected, nil
}

// DeletePendingByRequester 申请人撤回申请
func (r *contactRepository) DeletePendingByRequester(ctx context.Context, edgeID, requesterID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND requester_id = ?", edgeID, model.ContactStatusPending, requesterID).
		Delete(&model.ContactEdge{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "撤回好友申请 id=%d", edgeID)
	}
	return res.RowsAffected, nil
}

// DeleteAccepted 好友关系任意一方均可删除
func (r *contactRepository) DeleteAccepted(ctx context.Context, edgeID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND (requester_id = ? OR recipient_id = ?)", edgeID, model.ContactStatusAccepted, userID, userID).
		Delete(&model.ContactEdge{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "删除好友 id=%d", edgeID)
	}
	return res.RowsAffected, nil
}

const contactViewColumns = "e.id AS edge_id, e.requester_id, e.recipient_id, e.status, e.created_at, e.updated_at, " +
	"u.id AS user_id, u.first_name, u.last_name, u.avatar"

// ListIncoming 别人发给 userID 的待处理申请，附带申请人资料
func (r *contactRepository) ListIncoming(ctx context.Context, userID uint) ([]ContactView, error) {
	var views []ContactView
	err := r.db.WithContext(ctx).Table("contact_edge AS e").
		Select(contactViewColumns).
		Joins("JOIN user_info u ON u.id = e.requester_id").
		Where("e.recipient_id = ? AND e.status = ?", userID, model.ContactStatusPending).
		Order("e.created_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询收到的好友申请 user=%d", userID)
	}
	return views, nil
}

// ListSent userID 发出的待处理申请，附带接收人资料
func (r *contactRepository) ListSent(ctx context.Context, userID uint) ([]ContactView, error) {
	var views []ContactView
	err := r.db.WithContext(ctx).Table("contact_edge AS e").
		Select(contactViewColumns).
		Joins("JOIN user_info u ON u.id = e.recipient_id").
		Where("e.requester_id = ? AND e.status = ?", userID, model.ContactStatusPending).
		Order("e.created_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询发出的好友申请 user=%d", userID)
	}
	return views, nil
}

// ListFriends userID 的好友，对方可能在关系的任意一端
func (r *contactRepository) ListFriends(ctx context.Context, userID uint) ([]ContactView, error) {
	var views []ContactView
	err := r.db.WithContext(ctx).Table("contact_edge AS e").
		Select(contactViewColumns).
		Joins("JOIN user_info u ON u.id = CASE WHEN e.requester_id = ? THEN e.recipient_id ELSE e.requester_id END", userID).
		Where("(e.requester_id = ? OR e.recipient_id = ?) AND e.status = ?", userID, userID, model.ContactStatusAccepted).
		Order("e.updated_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询好友列表 user=%d", userID)
	}
	return views, nil
}
