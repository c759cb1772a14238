package repository

import (
	"context"
	"time"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 写入消息并推进会话 updated_at，两步在同一事务中完成
func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return wrapDBErrorf(err, "写入消息 conv=%d", msg.ConversationID)
	}
	return nil
}

// ListByConversation 会话全部消息，雪花 id 与创建时间同序
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询消息 conv=%d", conversationID)
	}
	return messages, nil
}

// MarkRead 批量标记已读并记录成员的 last_read_at
func (r *messageRepository) MarkRead(ctx context.Context, conversationID, readerID uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
			Update("is_read", true)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return tx.Model(&model.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, readerID).
			Update("last_read_at", time.Now()).Error
	})
	if err != nil {
		return 0, wrapDBErrorf(err, "标记已读 conv=%d user=%d", conversationID, readerID)
	}
	return affected, nil
}
