package model

import "time"

// 通知类型
const (
	NotificationContactRequest = "contact_request"
	NotificationFriendAccept   = "friend_accept"
	NotificationFriendDecline  = "friend_decline"
)

// Notification 用户社交事件通知，客户端轮询拉取
// Body 存放触发事件的用户 id（十进制字符串），ReferenceID 为关联的 ContactEdge id
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"column:user_id;index;not null" json:"user_id"`
	Type        string    `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Title       string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Body        string    `gorm:"column:body;type:varchar(255)" json:"body"`
	IsRead      bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	ReferenceID uint      `gorm:"column:reference_id" json:"reference_id"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notification"
}
