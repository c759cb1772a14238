package model

import (
	"fmt"
	"time"
)

// 联系人关系状态
const (
	ContactStatusPending  = "pending"
	ContactStatusAccepted = "accepted"
)

// ContactEdge 有向的联系人关系记录
// 任意无序用户对 {A,B} 至多一条记录，由 PairKey 唯一索引保证
// 拒绝、撤回、删除好友时直接物理删除，不保留终态
type ContactEdge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequesterID uint      `gorm:"column:requester_id;index;not null;comment:申请人" json:"requester_id"`
	RecipientID uint      `gorm:"column:recipient_id;index;not null;comment:接收人" json:"recipient_id"`
	PairKey     string    `gorm:"column:pair_key;type:varchar(41);uniqueIndex;not null;comment:无序用户对" json:"-"`
	Status      string    `gorm:"column:status;type:varchar(16);index;not null;comment:pending/accepted" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (ContactEdge) TableName() string {
	return "contact_edge"
}

// OtherParty 返回关系中 userID 之外的另一方
func (e *ContactEdge) OtherParty(userID uint) uint {
	if e.RequesterID == userID {
		return e.RecipientID
	}
	return e.RequesterID
}

// PairKey 生成无序用户对的规范键 "min:max"
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
