package repository

import (
	"context"
	"errors"
	"time"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话 Repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindOrCreateDirect 在一个事务内查找或创建会话及两条成员记录
// 并发创建时 pair_key 唯一索引只允许一方成功，失败方读取已提交的会话
func (r *conversationRepository) FindOrCreateDirect(ctx context.Context, userA, userB uint) (uint, error) {
	key := model.PairKey(userA, userB)

	var id uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		err := tx.Where("pair_key = ?", key).First(&conv).Error
		if err == nil {
			id = conv.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conv = model.Conversation{PairKey: key}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		now := time.Now()
		participants := []model.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userA, JoinedAt: now},
			{ConversationID: conv.ID, UserID: userB, JoinedAt: now},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}
		id = conv.ID
		return nil
	})
	if err == nil {
		return id, nil
	}
	if !isDuplicateKey(err) {
		return 0, wrapDBErrorf(err, "创建会话 %s", key)
	}

	var conv model.Conversation
	if err := r.db.WithContext(ctx).Where("pair_key = ?", key).First(&conv).Error; err != nil {
		return 0, wrapDBErrorf(err, "查询会话 %s", key)
	}
	return conv.ID, nil
}

// IsParticipant 用户是否为会话成员
func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "检查会话成员 conv=%d user=%d", conversationID, userID)
	}
	return count > 0, nil
}

// ParticipantIDs 会话全部成员 id
func (r *conversationRepository) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询会话成员 conv=%d", conversationID)
	}
	return ids, nil
}

type conversationRow struct {
	ConversationID uint      `gorm:"column:conversation_id"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	OtherUserID    uint      `gorm:"column:other_user_id"`
	FirstName      string    `gorm:"column:first_name"`
	LastName       string    `gorm:"column:last_name"`
	Avatar         string    `gorm:"column:avatar"`
}

type lastMessageRow struct {
	ConversationID uint      `gorm:"column:conversation_id"`
	Content        string    `gorm:"column:content"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

type unreadRow struct {
	ConversationID uint  `gorm:"column:conversation_id"`
	Unread         int64 `gorm:"column:unread"`
}

// ListForUser 三条查询拼装会话摘要：会话+对方资料、每个会话最新一条消息、对方发来的未读数
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	db := r.db.WithContext(ctx)

	var rows []conversationRow
	err := db.Table("conversation_participant AS me").
		Select("c.id AS conversation_id, c.updated_at, u.id AS other_user_id, u.first_name, u.last_name, u.avatar").
		Joins("JOIN conversation c ON c.id = me.conversation_id").
		Joins("JOIN conversation_participant other ON other.conversation_id = me.conversation_id AND other.user_id <> me.user_id").
		Joins("JOIN user_info u ON u.id = other.user_id").
		Where("me.user_id = ?", userID).
		Order("c.updated_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询会话列表 user=%d", userID)
	}
	if len(rows) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ConversationID)
	}

	var lasts []lastMessageRow
	err = db.Model(&model.Message{}).
		Select("conversation_id, content, created_at").
		Where("id IN (?)", db.Model(&model.Message{}).Select("MAX(id)").Where("conversation_id IN ?", ids).Group("conversation_id")).
		Scan(&lasts).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询最新消息 user=%d", userID)
	}

	var unreads []unreadRow
	err = db.Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", ids, userID, false).
		Group("conversation_id").
		Scan(&unreads).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "统计未读消息 user=%d", userID)
	}

	lastByConv := make(map[uint]lastMessageRow, len(lasts))
	for _, l := range lasts {
		lastByConv[l.ConversationID] = l
	}
	unreadByConv := make(map[uint]int64, len(unreads))
	for _, u := range unreads {
		unreadByConv[u.ConversationID] = u.Unread
	}

	summaries := make([]ConversationSummary, 0, len(rows))
	for _, row := range rows {
		s := ConversationSummary{
			ConversationID: row.ConversationID,
			UpdatedAt:      row.UpdatedAt,
			OtherUserID:    row.OtherUserID,
			FirstName:      row.FirstName,
			LastName:       row.LastName,
			Avatar:         row.Avatar,
			UnreadCount:    unreadByConv[row.ConversationID],
		}
		if last, ok := lastByConv[row.ConversationID]; ok {
			at := last.CreatedAt
			s.LastMessage = last.Content
			s.LastMessageAt = &at
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
