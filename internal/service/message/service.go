// Package message 实现一对一会话和消息收发
package message

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/dto/respond"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/constants"
	"reconnect_server/pkg/errorx"
)

// IDGenerator 消息 id 生成器
type IDGenerator interface {
	GenerateID() int64
}

// Options 可选依赖，零值表示不启用对应缓存
type Options struct {
	// Cache 会话列表缓存，为 nil 时每次查库
	Cache   myredis.AsyncCacheService
	ListTTL time.Duration
	// MembershipCacheSize 会话成员关系 LRU 容量，<=0 时不缓存
	MembershipCacheSize int
}

// messageService 会话和消息业务逻辑实现
type messageService struct {
	convs  repository.ConversationRepository
	msgs   repository.MessageRepository
	users  repository.UserRepository
	ids    IDGenerator
	policy dbcall.Policy

	cache   myredis.AsyncCacheService
	listTTL time.Duration

	// listGen 每次失效递增，回写时代数变化说明读到的是旧数据
	// listMu 同时串行化回写和失效，保证 Delete 总在 Set 之后
	listMu  sync.Mutex
	listGen map[uint]uint64

	// membership 只缓存肯定结果，成员关系建立后不会撤销
	membership *lru.Cache[string, struct{}]
}

func NewMessageService(
	convs repository.ConversationRepository,
	msgs repository.MessageRepository,
	users repository.UserRepository,
	ids IDGenerator,
	policy dbcall.Policy,
	opts Options,
) (*messageService, error) {
	s := &messageService{
		convs:   convs,
		msgs:    msgs,
		users:   users,
		ids:     ids,
		policy:  policy,
		cache:   opts.Cache,
		listTTL: opts.ListTTL,
		listGen: make(map[uint]uint64),
	}
	if opts.MembershipCacheSize > 0 {
		c, err := lru.New[string, struct{}](opts.MembershipCacheSize)
		if err != nil {
			return nil, fmt.Errorf("init membership cache: %w", err)
		}
		s.membership = c
	}
	return s, nil
}

// FindOrCreateConversation 查找或创建两人会话，幂等
func (s *messageService) FindOrCreateConversation(ctx context.Context, userA, userB uint) (*respond.ConversationRespond, error) {
	if userA == userB {
		return nil, errorx.New(errorx.CodeInvalidParam, "不能和自己创建会话")
	}

	var exists bool
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		exists, err = s.users.Exists(ctx, userB)
		return err
	})
	if err != nil {
		zap.L().Error("Check conversation peer error", zap.Uint("peer", userB), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !exists {
		return nil, errorx.ErrUserNotExist
	}

	var convID uint
	err = s.policy.Write(ctx, func(ctx context.Context) (err error) {
		convID, err = s.convs.FindOrCreateDirect(ctx, userA, userB)
		return err
	})
	if err != nil {
		zap.L().Error("Find or create conversation error", zap.Uint("a", userA), zap.Uint("b", userB), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	s.rememberMember(convID, userA)
	s.rememberMember(convID, userB)
	s.invalidateLists(ctx, userA, userB)
	return &respond.ConversationRespond{ConversationID: convID}, nil
}

// ListConversations 用户的会话列表，按最近活跃倒序
func (s *messageService) ListConversations(ctx context.Context, userID uint) ([]respond.ConversationListItem, error) {
	key := listKey(userID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil && cached != "" {
			var items []respond.ConversationListItem
			if err := json.Unmarshal([]byte(cached), &items); err == nil {
				return items, nil
			}
			zap.L().Warn("Conversation list cache unmarshal failed", zap.Uint("user", userID), zap.Error(err))
		} else if err != nil {
			zap.L().Warn("Conversation list cache read failed", zap.Uint("user", userID), zap.Error(err))
		}
	}

	gen := s.listGeneration(userID)

	var rows []repository.ConversationSummary
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		rows, err = s.convs.ListForUser(ctx, userID)
		return err
	})
	if err != nil {
		zap.L().Error("List conversations error", zap.Uint("user", userID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	items := make([]respond.ConversationListItem, 0, len(rows))
	for _, r := range rows {
		item := respond.ConversationListItem{
			ConversationID: r.ConversationID,
			OtherUser: respond.PublicUser{
				ID:        r.OtherUserID,
				FirstName: r.FirstName,
				LastName:  r.LastName,
				Avatar:    r.Avatar,
			},
			LastMessageAt: r.LastMessageAt,
			UnreadCount:   r.UnreadCount,
			UpdatedAt:     r.UpdatedAt,
		}
		if r.LastMessageAt != nil {
			last := r.LastMessage
			item.LastMessage = &last
		}
		items = append(items, item)
	}

	if s.cache != nil {
		s.cache.SubmitTask(func() {
			data, err := json.Marshal(items)
			if err != nil {
				zap.L().Error("Conversation list marshal failed", zap.Error(err))
				return
			}
			s.listMu.Lock()
			defer s.listMu.Unlock()
			if s.listGen[userID] != gen {
				zap.L().Debug("Skip stale conversation list write-back", zap.Uint("user", userID))
				return
			}
			if err := s.cache.Set(context.Background(), key, string(data), s.listTTL); err != nil {
				zap.L().Warn("Conversation list cache write failed", zap.Uint("user", userID), zap.Error(err))
			}
		})
	}
	return items, nil
}

// CheckParticipant 会话访问控制，非成员返回 Forbidden
func (s *messageService) CheckParticipant(ctx context.Context, conversationID, userID uint) error {
	if s.membership != nil && s.membership.Contains(memberKey(conversationID, userID)) {
		return nil
	}

	var ok bool
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		ok, err = s.convs.IsParticipant(ctx, conversationID, userID)
		return err
	})
	if err != nil {
		zap.L().Error("Check participant error", zap.Uint("conversation", conversationID), zap.Uint("user", userID), zap.Error(err))
		return errorx.ErrServerBusy
	}
	if !ok {
		return errorx.ErrForbidden
	}
	s.rememberMember(conversationID, userID)
	return nil
}

// GetMessages 会话完整历史，按时间升序
// 读取前先把对方发来的消息标记为已读，返回结果反映已读状态
func (s *messageService) GetMessages(ctx context.Context, conversationID, userID uint) ([]respond.MessageRespond, error) {
	if err := s.CheckParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if _, err := s.markRead(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	var rows []model.Message
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		rows, err = s.msgs.ListByConversation(ctx, conversationID)
		return err
	})
	if err != nil {
		zap.L().Error("List messages error", zap.Uint("conversation", conversationID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	list := make([]respond.MessageRespond, 0, len(rows))
	for i := range rows {
		list = append(list, *toMessageRespond(&rows[i]))
	}
	return list, nil
}

// SendMessage 持久化一条消息并推进会话活跃时间
func (s *messageService) SendMessage(ctx context.Context, conversationID, senderID uint, content string) (*respond.MessageRespond, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errorx.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > constants.MAX_MESSAGE_LENGTH {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "消息长度不能超过 %d 个字符", constants.MAX_MESSAGE_LENGTH)
	}
	if err := s.CheckParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             s.ids.GenerateID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	err := s.policy.Write(ctx, func(ctx context.Context) error {
		return s.msgs.Create(ctx, msg)
	})
	if err != nil {
		zap.L().Error("Create message error", zap.Uint("conversation", conversationID), zap.Uint("sender", senderID), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	s.invalidateConversation(ctx, conversationID)
	return toMessageRespond(msg), nil
}

// MarkRead 把对方发来的未读消息标记为已读
func (s *messageService) MarkRead(ctx context.Context, conversationID, userID uint) (*respond.AffectedRespond, error) {
	if err := s.CheckParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	affected, err := s.markRead(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return &respond.AffectedRespond{Affected: affected}, nil
}

func (s *messageService) markRead(ctx context.Context, conversationID, userID uint) (int64, error) {
	var affected int64
	err := s.policy.Write(ctx, func(ctx context.Context) (err error) {
		affected, err = s.msgs.MarkRead(ctx, conversationID, userID)
		return err
	})
	if err != nil {
		zap.L().Error("Mark messages read error", zap.Uint("conversation", conversationID), zap.Uint("user", userID), zap.Error(err))
		return 0, errorx.ErrServerBusy
	}
	if affected > 0 {
		s.invalidateLists(ctx, userID)
	}
	return affected, nil
}

// invalidateConversation 清除会话所有成员的列表缓存
func (s *messageService) invalidateConversation(ctx context.Context, conversationID uint) {
	if s.cache == nil {
		return
	}
	var ids []uint
	err := s.policy.Read(ctx, func(ctx context.Context) (err error) {
		ids, err = s.convs.ParticipantIDs(ctx, conversationID)
		return err
	})
	if err != nil {
		zap.L().Warn("Load participants for cache invalidation failed", zap.Uint("conversation", conversationID), zap.Error(err))
		return
	}
	s.invalidateLists(ctx, ids...)
}

func (s *messageService) invalidateLists(ctx context.Context, userIDs ...uint) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	s.listMu.Lock()
	for _, id := range userIDs {
		s.listGen[id]++
		keys = append(keys, listKey(id))
	}
	s.listMu.Unlock()
	if err := s.cache.Delete(ctx, keys...); err != nil {
		zap.L().Warn("Conversation list cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *messageService) listGeneration(userID uint) uint64 {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	return s.listGen[userID]
}

func (s *messageService) rememberMember(conversationID, userID uint) {
	if s.membership != nil {
		s.membership.Add(memberKey(conversationID, userID), struct{}{})
	}
}

func listKey(userID uint) string {
	return myredis.ConversationListPrefix + strconv.FormatUint(uint64(userID), 10)
}

func memberKey(conversationID, userID uint) string {
	return strconv.FormatUint(uint64(conversationID), 10) + ":" + strconv.FormatUint(uint64(userID), 10)
}

func toMessageRespond(m *model.Message) *respond.MessageRespond {
	return &respond.MessageRespond{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}
