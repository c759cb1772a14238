package model

import "time"

// Conversation 私聊会话
// UpdatedAt 在每条新消息写入时推进，用于会话列表按最近活跃排序
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PairKey   string    `gorm:"column:pair_key;type:varchar(41);uniqueIndex;not null;comment:双方用户对" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;index" json:"updated_at"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversation"
}

// ConversationParticipant 会话成员关系，是消息读写的唯一访问控制依据
type ConversationParticipant struct {
	ID             uint       `gorm:"primaryKey"`
	ConversationID uint       `gorm:"column:conversation_id;uniqueIndex:uk_conv_user;not null"`
	UserID         uint       `gorm:"column:user_id;uniqueIndex:uk_conv_user;index;not null"`
	JoinedAt       time.Time  `gorm:"column:joined_at;not null"`
	LastReadAt     *time.Time `gorm:"column:last_read_at"`
}

// TableName 指定表名
func (ConversationParticipant) TableName() string {
	return "conversation_participant"
}
