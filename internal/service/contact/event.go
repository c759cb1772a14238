package contact

import (
	"context"

	"reconnect_server/internal/model"
)

// 状态迁移操作
const (
	OpSendRequest = "send_request"
	OpAccept      = "accept_request"
	OpDecline     = "decline_request"
	OpCancel      = "cancel_request"
	OpRemove      = "remove_friend"
)

// 状态迁移结果
const (
	OutcomePending      = "pending"
	OutcomeAutoAccepted = "auto_accepted"
	OutcomeAccepted     = "accepted"
	OutcomeDeclined     = "declined"
	OutcomeCancelled    = "cancelled"
	OutcomeRemoved      = "removed"
)

// Event 一次已提交的关系状态迁移
// Edge 为迁移后的记录；删除类迁移为删除前的快照
type Event struct {
	Operation string
	Outcome   string
	ActorID   uint
	TargetID  uint
	Edge      model.ContactEdge
}

// Notifier 接收状态迁移事件，由通知模块实现
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
