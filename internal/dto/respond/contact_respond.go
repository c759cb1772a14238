package respond

import "time"

// SendRequestRespond 发送好友申请的结果
// Accepted 为 true 表示对方此前已向自己发出申请，双方直接成为好友
type SendRequestRespond struct {
	Accepted bool `json:"accepted"`
	EdgeID   uint `json:"edge_id"`
}

// ContactEdgeRespond 关系记录
type ContactEdgeRespond struct {
	ID          uint      `json:"id"`
	RequesterID uint      `json:"requester_id"`
	RecipientID uint      `json:"recipient_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContactListItem 申请/好友列表中的一项
type ContactListItem struct {
	EdgeID    uint       `json:"edge_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	User      PublicUser `json:"user"`
	// Online 仅好友列表返回
	Online *bool `json:"online,omitempty"`
}

// RelationStatusRespond 两个用户之间的关系
// Status 取值 none / pending_sent / pending_received / friend
type RelationStatusRespond struct {
	Status string `json:"status"`
	EdgeID *uint  `json:"edge_id,omitempty"`
}
