// Package contact 实现联系人关系状态机
// none -> pending(A->B) -> {accepted | none}，accepted -> none
// 向已向自己发出申请的用户发申请时，直接把对方的记录置为 accepted
package contact

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/infrastructure/metrics"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/errorx"
)

// 关系状态
const (
	RelationNone            = "none"
	RelationPendingSent     = "pending_sent"
	RelationPendingReceived = "pending_received"
	RelationFriend          = "friend"
)

// sendAttempts SendRequest 在并发冲突下重新判定的次数上限
const sendAttempts = 3

// PresenceReader 读取网关维护的在线用户集合
type PresenceReader interface {
	GetSetMembers(ctx context.Context, key string) ([]string, error)
}

// contactService 联系人业务逻辑实现
type contactService struct {
	contacts repository.ContactRepository
	users    repository.UserRepository
	notifier Notifier
	presence PresenceReader
	policy   dbcall.Policy
	metrics  *metrics.Metrics
}

// NewContactService 构造函数，notifier、presence 和 m 可为 nil
func NewContactService(
	contacts repository.ContactRepository,
	users repository.UserRepository,
	notifier Notifier,
	presence PresenceReader,
	policy dbcall.Policy,
	m *metrics.Metrics,
) *contactService {
	return &contactService{
		contacts: contacts,
		users:    users,
		notifier: notifier,
		presence: presence,
		policy:   policy,
		metrics:  m,
	}
}

// SendRequest 发送好友申请
func (s *contactService) SendRequest(ctx context.Context, requesterID, targetID uint) (*respond.SendRequestRespond, error) {
	if requesterID == targetID {
		return nil, errorx.ErrSelfRequest
	}

	var exists bool
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		exists, err = s.users.Exists(ctx, targetID)
		return err
	})
	if err != nil {
		zap.L().Error("Check target user error", zap.Uint("target", targetID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !exists {
		return nil, errorx.New(errorx.CodeUserNotExist, "该用户不存在")
	}

	// pair_key 唯一索引保证同一用户对至多一条记录
	// 插入冲突或条件更新落空说明有并发迁移，重新读取后再判定
	for attempt := 0; attempt < sendAttempts; attempt++ {
		edge, err := s.findBetween(ctx, requesterID, targetID)
		if err != nil {
			return nil, err
		}

		if edge != nil {
			if edge.Status == model.ContactStatusAccepted {
				return nil, errorx.ErrAlreadyFriends
			}
			if edge.RequesterID == requesterID {
				return nil, errorx.ErrDuplicateRequest
			}

			// 对方已向自己发出申请：自动通过
			var affected int64
			err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
				affected, err = s.contacts.AcceptPending(ctx, edge.ID, requesterID)
				return err
			})
			if err != nil {
				zap.L().Error("Auto accept contact error", zap.Uint("edge", edge.ID), zap.Error(err))
				return nil, errorx.ErrServerBusy
			}
			if affected == 0 {
				continue
			}
			edge.Status = model.ContactStatusAccepted
			s.emit(ctx, Event{Operation: OpSendRequest, Outcome: OutcomeAutoAccepted, ActorID: requesterID, TargetID: targetID, Edge: *edge})
			return &respond.SendRequestRespond{Accepted: true, EdgeID: edge.ID}, nil
		}

		newEdge := &model.ContactEdge{
			RequesterID: requesterID,
			RecipientID: targetID,
			Status:      model.ContactStatusPending,
		}
		err = s.policy.Write(ctx, func(ctx context.Context) error {
			return s.contacts.Create(ctx, newEdge)
		})
		if err != nil {
			if errorx.IsConflict(err) {
				continue
			}
			zap.L().Error("Create contact edge error", zap.Uint("requester", requesterID), zap.Uint("target", targetID), zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		s.emit(ctx, Event{Operation: OpSendRequest, Outcome: OutcomePending, ActorID: requesterID, TargetID: targetID, Edge: *newEdge})
		return &respond.SendRequestRespond{Accepted: false, EdgeID: newEdge.ID}, nil
	}

	zap.L().Warn("Contact state kept changing during send request", zap.Uint("requester", requesterID), zap.Uint("target", targetID))
	return nil, errorx.New(errorx.CodeConflict, "关系状态已变化，请重试")
}

// AcceptRequest 接收人通过申请
func (s *contactService) AcceptRequest(ctx context.Context, edgeID, actingUserID uint) (*respond.ContactEdgeRespond, error) {
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = s.contacts.AcceptPending(ctx, edgeID, actingUserID)
		return err
	})
	if err != nil {
		zap.L().Error("Accept contact error", zap.Uint("edge", edgeID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if affected == 0 {
		return nil, errorx.ErrNotFoundOrForbidden
	}

	edge, err := s.findByID(ctx, edgeID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, Event{Operation: OpAccept, Outcome: OutcomeAccepted, ActorID: actingUserID, TargetID: edge.RequesterID, Edge: *edge})
	return toEdgeRespond(edge), nil
}

// DeclineRequest 接收人拒绝申请，返回被删除的记录供调用方通知申请人
func (s *contactService) DeclineRequest(ctx context.Context, edgeID, actingUserID uint) (*respond.ContactEdgeRespond, error) {
	edge, err := s.findByID(ctx, edgeID)
	if err != nil {
		return nil, err
	}

	var affected int64
	err = s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = s.contacts.DeletePendingByRecipient(ctx, edgeID, actingUserID)
		return err
	})
	if err != nil {
		zap.L().Error("Decline contact error", zap.Uint("edge", edgeID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if affected == 0 {
		return nil, errorx.ErrNotFoundOrForbidden
	}
	s.emit(ctx, Event{Operation: OpDecline, Outcome: OutcomeDeclined, ActorID: actingUserID, TargetID: edge.RequesterID, Edge: *edge})
	return toEdgeRespond(edge), nil
}

// CancelSentRequest 申请人撤回尚未处理的申请
func (s *contactService) CancelSentRequest(ctx context.Context, edgeID, actingUserID uint) error {
	return s.deleteEdge(ctx, OpCancel, OutcomeCancelled, edgeID, actingUserID, s.contacts.DeletePendingByRequester)
}

// RemoveFriend 任意一方删除好友
func (s *contactService) RemoveFriend(ctx context.Context, edgeID, actingUserID uint) error {
	return s.deleteEdge(ctx, OpRemove, OutcomeRemoved, edgeID, actingUserID, s.contacts.DeleteAccepted)
}

func (s *contactService) deleteEdge(
	ctx context.Context,
	op, outcome string,
	edgeID, actingUserID uint,
	del func(ctx context.Context, edgeID, userID uint) (int64, error),
) error {
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = del(ctx, edgeID, actingUserID)
		return err
	})
	if err != nil {
		zap.L().Error("Delete contact edge error", zap.String("op", op), zap.Uint("edge", edgeID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if affected == 0 {
		return errorx.ErrNotFoundOrForbidden
	}
	s.metrics.ContactTransition(op, outcome)
	return nil
}

// GetRelationStatus 从 userA 的视角描述与 userB 的关系
func (s *contactService) GetRelationStatus(ctx context.Context, userA, userB uint) (*respond.RelationStatusRespond, error) {
	if userA == userB {
		return &respond.RelationStatusRespond{Status: RelationNone}, nil
	}
	edge, err := s.findBetween(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return &respond.RelationStatusRespond{Status: RelationNone}, nil
	}

	id := edge.ID
	rsp := &respond.RelationStatusRespond{EdgeID: &id}
	switch {
	case edge.Status == model.ContactStatusAccepted:
		rsp.Status = RelationFriend
	case edge.RequesterID == userA:
		rsp.Status = RelationPendingSent
	default:
		rsp.Status = RelationPendingReceived
	}
	return rsp, nil
}

// ListIncoming 收到的待处理申请
func (s *contactService) ListIncoming(ctx context.Context, userID uint) ([]respond.ContactListItem, error) {
	return s.list(ctx, "incoming", userID, s.contacts.ListIncoming)
}

// ListSent 发出的待处理申请
func (s *contactService) ListSent(ctx context.Context, userID uint) ([]respond.ContactListItem, error) {
	return s.list(ctx, "sent", userID, s.contacts.ListSent)
}

// ListFriends 好友列表，附带在线状态
func (s *contactService) ListFriends(ctx context.Context, userID uint) ([]respond.ContactListItem, error) {
	items, err := s.list(ctx, "friends", userID, s.contacts.ListFriends)
	if err != nil || s.presence == nil || len(items) == 0 {
		return items, err
	}

	// 在线状态读取失败时省略该字段，不影响列表
	members, err := s.presence.GetSetMembers(ctx, myredis.OnlineUsersKey)
	if err != nil {
		zap.L().Warn("Load online users failed", zap.Uint("user", userID), zap.Error(err))
		return items, nil
	}
	online := make(map[string]struct{}, len(members))
	for _, m := range members {
		online[m] = struct{}{}
	}
	for i := range items {
		_, ok := online[strconv.FormatUint(uint64(items[i].User.ID), 10)]
		items[i].Online = &ok
	}
	return items, nil
}

func (s *contactService) list(
	ctx context.Context,
	kind string,
	userID uint,
	query func(ctx context.Context, userID uint) ([]repository.ContactView, error),
) ([]respond.ContactListItem, error) {
	var views []repository.ContactView
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		views, err = query(ctx, userID)
		return err
	})
	if err != nil {
		zap.L().Error("List contacts error", zap.String("kind", kind), zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	items := make([]respond.ContactListItem, 0, len(views))
	for _, v := range views {
		items = append(items, respond.ContactListItem{
			EdgeID:    v.EdgeID,
			Status:    v.Status,
			CreatedAt: v.CreatedAt,
			User: respond.PublicUser{
				ID:        v.UserID,
				FirstName: v.FirstName,
				LastName:  v.LastName,
				Avatar:    v.Avatar,
			},
		})
	}
	return items, nil
}

// findBetween 不存在时返回 nil, nil
func (s *contactService) findBetween(ctx context.Context, userA, userB uint) (*model.ContactEdge, error) {
	var edge *model.ContactEdge
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		edge, err = s.contacts.FindBetween(ctx, userA, userB)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, nil
		}
		zap.L().Error("Find contact edge error", zap.Uint("a", userA), zap.Uint("b", userB), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return edge, nil
}

// findByID 不存在时返回 NotFoundOrForbidden
func (s *contactService) findByID(ctx context.Context, edgeID uint) (*model.ContactEdge, error) {
	var edge *model.ContactEdge
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		edge, err = s.contacts.FindByID(ctx, edgeID)
		return err
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrNotFoundOrForbidden
		}
		zap.L().Error("Find contact edge error", zap.Uint("edge", edgeID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return edge, nil
}

// emit 迁移已提交，通知失败只记录日志
func (s *contactService) emit(ctx context.Context, ev Event) {
	s.metrics.ContactTransition(ev.Operation, ev.Outcome)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		zap.L().Warn("Emit contact notification error",
			zap.String("op", ev.Operation),
			zap.String("outcome", ev.Outcome),
			zap.Uint("edge", ev.Edge.ID),
			zap.Error(err),
		)
	}
}

func toEdgeRespond(edge *model.ContactEdge) *respond.ContactEdgeRespond {
	return &respond.ContactEdgeRespond{
		ID:          edge.ID,
		RequesterID: edge.RequesterID,
		RecipientID: edge.RecipientID,
		Status:      edge.Status,
		CreatedAt:   edge.CreatedAt,
		UpdatedAt:   edge.UpdatedAt,
	}
}
