// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层和网关调用
package service

import (
	"context"
	"mime/multipart"

	"reconnect_server/internal/dto/request"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/pkg/util/jwt"
)

// AuthService 注册登录和身份解析
type AuthService interface {
	Register(ctx context.Context, req request.RegisterRequest) (*respond.ProfileRespond, error)
	Login(ctx context.Context, req request.LoginRequest) (*respond.LoginRespond, error)
	// Logout 注销当前 token
	Logout(ctx context.Context, claims *jwt.Claims) error
	// ResolveIdentity 校验 token 并返回声明，失败为 Unauthorized
	ResolveIdentity(ctx context.Context, token string) (*jwt.Claims, error)
	Me(ctx context.Context, userID uint) (*respond.ProfileRespond, error)
	ChangePassword(ctx context.Context, userID uint, req request.ChangePasswordRequest) error
	// DeleteAccount 删除账号，该用户已签发的 token 全部失效
	DeleteAccount(ctx context.Context, claims *jwt.Claims, req request.DeleteAccountRequest) error
}

// UserService 用户资料和检索
type UserService interface {
	// GetUser viewerID 为查看者，非本人时隐藏联系方式
	GetUser(ctx context.Context, viewerID, userID uint) (*respond.ProfileRespond, error)
	UpdateProfile(ctx context.Context, userID uint, req request.UpdateProfileRequest) (*respond.ProfileRespond, error)
	UploadAvatar(ctx context.Context, userID uint, file *multipart.FileHeader) (*respond.AvatarRespond, error)
	SearchUsers(ctx context.Context, req request.SearchUsersRequest) (*respond.SearchUsersRespond, error)
}

// ContactService 联系人关系状态机
type ContactService interface {
	SendRequest(ctx context.Context, requesterID, targetID uint) (*respond.SendRequestRespond, error)
	AcceptRequest(ctx context.Context, edgeID, actingUserID uint) (*respond.ContactEdgeRespond, error)
	DeclineRequest(ctx context.Context, edgeID, actingUserID uint) (*respond.ContactEdgeRespond, error)
	CancelSentRequest(ctx context.Context, edgeID, actingUserID uint) error
	RemoveFriend(ctx context.Context, edgeID, actingUserID uint) error
	GetRelationStatus(ctx context.Context, userA, userB uint) (*respond.RelationStatusRespond, error)
	ListIncoming(ctx context.Context, userID uint) ([]respond.ContactListItem, error)
	ListSent(ctx context.Context, userID uint) ([]respond.ContactListItem, error)
	ListFriends(ctx context.Context, userID uint) ([]respond.ContactListItem, error)
}

// MessageService 会话和消息
type MessageService interface {
	FindOrCreateConversation(ctx context.Context, userA, userB uint) (*respond.ConversationRespond, error)
	ListConversations(ctx context.Context, userID uint) ([]respond.ConversationListItem, error)
	GetMessages(ctx context.Context, conversationID, userID uint) ([]respond.MessageRespond, error)
	SendMessage(ctx context.Context, conversationID, senderID uint, content string) (*respond.MessageRespond, error)
	MarkRead(ctx context.Context, conversationID, userID uint) (*respond.AffectedRespond, error)
	// CheckParticipant 非成员返回 Forbidden
	CheckParticipant(ctx context.Context, conversationID, userID uint) error
}

// NotificationService 通知收件箱，所有操作限定在本人名下
type NotificationService interface {
	GetByUser(ctx context.Context, userID uint) ([]respond.NotificationRespond, error)
	MarkAsRead(ctx context.Context, id, userID uint) error
	MarkAllAsRead(ctx context.Context, userID uint) (*respond.AffectedRespond, error)
	Delete(ctx context.Context, id, userID uint) error
	UnreadCount(ctx context.Context, userID uint) (*respond.UnreadCountRespond, error)
}
