// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有需要原子性的多语句操作都在本层以单条条件语句或显式事务完成
package repository

import (
	"context"
	"time"

	"reconnect_server/internal/model"

	"gorm.io/gorm"
)

// ==================== 查询结果视图 ====================

// UserFilter 资料检索条件，空字段不参与过滤
type UserFilter struct {
	FirstName string
	LastName  string
	Country   string
	City      string
	School    string
	Employer  string
}

// ContactView 联系人关系记录 + 对方公开资料
type ContactView struct {
	EdgeID      uint      `gorm:"column:edge_id"`
	RequesterID uint      `gorm:"column:requester_id"`
	RecipientID uint      `gorm:"column:recipient_id"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	UserID      uint      `gorm:"column:user_id"`
	FirstName   string    `gorm:"column:first_name"`
	LastName    string    `gorm:"column:last_name"`
	Avatar      string    `gorm:"column:avatar"`
}

// ConversationSummary 会话列表的一行
type ConversationSummary struct {
	ConversationID uint
	UpdatedAt      time.Time
	OtherUserID    uint
	FirstName      string
	LastName       string
	Avatar         string
	LastMessage    string
	LastMessageAt  *time.Time
	UnreadCount    int64
}

// ==================== Repository 接口定义 ====================

// UserRepository 用户资料数据访问接口
type UserRepository interface {
	// FindByID 按主键查找用户
	FindByID(ctx context.Context, id uint) (*model.UserInfo, error)
	// FindByEmail 按邮箱查找用户
	FindByEmail(ctx context.Context, email string) (*model.UserInfo, error)
	// FindByIDs 批量查找用户
	FindByIDs(ctx context.Context, ids []uint) ([]model.UserInfo, error)
	// Exists 用户是否存在
	Exists(ctx context.Context, id uint) (bool, error)
	// Create 创建用户
	Create(ctx context.Context, user *model.UserInfo) error
	// UpdateColumns 只更新 columns 列出的字段
	UpdateColumns(ctx context.Context, id uint, user *model.UserInfo, columns []string) error
	// UpdateAvatar 更新头像引用
	UpdateAvatar(ctx context.Context, id uint, avatar string) error
	// UpdatePassword 写入新的密码哈希
	UpdatePassword(ctx context.Context, id uint, hash string) error
	// DeleteAccount 在一个事务中删除用户、其联系人关系和通知，返回删除的用户行数
	DeleteAccount(ctx context.Context, id uint) (int64, error)
	// Search 按资料字段模糊检索可见用户，返回分页结果和总数
	Search(ctx context.Context, filter UserFilter, page, pageSize int) ([]model.UserInfo, int64, error)
}

// ContactRepository 联系人关系数据访问接口
// 状态迁移方法都是单条条件语句，返回受影响行数，0 表示记录不存在或条件不满足
type ContactRepository interface {
	// FindBetween 查找无序用户对之间的关系记录
	FindBetween(ctx context.Context, userA, userB uint) (*model.ContactEdge, error)
	// FindByID 按主键查找
	FindByID(ctx context.Context, edgeID uint) (*model.ContactEdge, error)
	// Create 新建 pending 关系，用户对已存在记录时返回 CodeConflict
	Create(ctx context.Context, edge *model.ContactEdge) error
	// AcceptPending pending -> accepted，仅限接收人
	AcceptPending(ctx context.Context, edgeID, recipientID uint) (int64, error)
	// DeletePendingByRecipient 接收人拒绝
	DeletePendingByRecipient(ctx context.Context, edgeID, recipientID uint) (int64, error)
	// DeletePendingByRequester 申请人撤回
	DeletePendingByRequester(ctx context.Context, edgeID, requesterID uint) (int64, error)
	// DeleteAccepted 任意一方删除好友
	DeleteAccepted(ctx context.Context, edgeID, userID uint) (int64, error)
	// ListIncoming 收到的待处理申请
	ListIncoming(ctx context.Context, userID uint) ([]ContactView, error)
	// ListSent 发出的待处理申请
	ListSent(ctx context.Context, userID uint) ([]ContactView, error)
	// ListFriends 已建立的好友关系
	ListFriends(ctx context.Context, userID uint) ([]ContactView, error)
}

// ConversationRepository 会话及成员数据访问接口
type ConversationRepository interface {
	// FindOrCreateDirect 查找或原子创建两人会话，返回会话 id
	FindOrCreateDirect(ctx context.Context, userA, userB uint) (uint, error)
	// IsParticipant 用户是否为会话成员
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	// ListForUser 用户参与的全部会话摘要，按 updated_at 倒序
	ListForUser(ctx context.Context, userID uint) ([]ConversationSummary, error)
	// ParticipantIDs 会话全部成员 id
	ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error)
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 在同一事务中写入消息并推进会话 updated_at
	Create(ctx context.Context, msg *model.Message) error
	// ListByConversation 会话全部消息，按时间升序
	ListByConversation(ctx context.Context, conversationID uint) ([]model.Message, error)
	// MarkRead 把会话中非 readerID 发送的未读消息标记为已读，返回受影响行数
	MarkRead(ctx context.Context, conversationID, readerID uint) (int64, error)
}

// NotificationRepository 通知数据访问接口，所有修改都限定在 userID 名下
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uint) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) (int64, error)
	ExistsForUser(ctx context.Context, id, userID uint) (bool, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构取得各自需要的接口
type Repositories struct {
	User         UserRepository
	Contact      ContactRepository
	Conversation ConversationRepository
	Message      MessageRepository
	Notification NotificationRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Contact:      NewContactRepository(db),
		Conversation: NewConversationRepository(db),
		Message:      NewMessageRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
