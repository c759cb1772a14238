package respond

import "time"

// NotificationRespond 通知，Actor 为触发事件的用户，已注销时为空
type NotificationRespond struct {
	ID          uint        `json:"id"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	IsRead      bool        `json:"is_read"`
	ReferenceID uint        `json:"reference_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Actor       *PublicUser `json:"actor"`
}

// UnreadCountRespond 未读数
type UnreadCountRespond struct {
	Count int64 `json:"count"`
}
