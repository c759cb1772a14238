package respond

import "time"

// ConversationRespond 查找或创建会话的结果
type ConversationRespond struct {
	ConversationID uint `json:"conversation_id"`
}

// ConversationListItem 会话列表中的一项
type ConversationListItem struct {
	ConversationID uint       `json:"conversation_id"`
	OtherUser      PublicUser `json:"other_user"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at"`
	UnreadCount    int64      `json:"unread_count"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MessageRespond 消息
// id 为雪花 id，以字符串序列化避免前端精度丢失
type MessageRespond struct {
	ID             int64     `json:"id,string"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// AffectedRespond 批量操作影响的行数
type AffectedRespond struct {
	Affected int64 `json:"affected"`
}
