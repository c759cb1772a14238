package model

import "time"

// Message 不可变的聊天消息
// ID 由雪花算法生成，按时间有序，同一会话内即为消息顺序
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	ConversationID uint      `gorm:"column:conversation_id;index:idx_conv_read;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"column:sender_id;index;not null" json:"sender_id"`
	Content        string    `gorm:"column:content;type:TEXT;not null" json:"content"`
	IsRead         bool      `gorm:"column:is_read;index:idx_conv_read;not null;default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}
