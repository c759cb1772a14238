package message

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconnect_server/internal/dao/mysql/repository"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/errorx"
)

// memStore 同时实现会话和消息两个 Repository
type memStore struct {
	mu         sync.Mutex
	nextConv   uint
	convs      map[string]uint
	updatedAt  map[uint]time.Time
	members    map[uint][]uint
	messages   []model.Message
	memberHits int
}

func newMemStore() *memStore {
	return &memStore{
		convs:     map[string]uint{},
		updatedAt: map[uint]time.Time{},
		members:   map[uint][]uint{},
	}
}

func (m *memStore) FindOrCreateDirect(_ context.Context, a, b uint) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.PairKey(a, b)
	if id, ok := m.convs[key]; ok {
		return id, nil
	}
	m.nextConv++
	m.convs[key] = m.nextConv
	m.updatedAt[m.nextConv] = time.Now()
	m.members[m.nextConv] = []uint{a, b}
	return m.nextConv, nil
}

func (m *memStore) IsParticipant(_ context.Context, convID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberHits++
	for _, id := range m.members[convID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListForUser(_ context.Context, userID uint) ([]repository.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ConversationSummary
	for convID, members := range m.members {
		var other uint
		found := false
		for _, id := range members {
			if id == userID {
				found = true
			} else {
				other = id
			}
		}
		if !found {
			continue
		}
		row := repository.ConversationSummary{ConversationID: convID, OtherUserID: other, UpdatedAt: m.updatedAt[convID]}
		for _, msg := range m.messages {
			if msg.ConversationID != convID {
				continue
			}
			at := msg.CreatedAt
			row.LastMessage = msg.Content
			row.LastMessageAt = &at
			if msg.SenderID != userID && !msg.IsRead {
				row.UnreadCount++
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) ParticipantIDs(_ context.Context, convID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint(nil), m.members[convID]...), nil
}

func (m *memStore) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	m.updatedAt[msg.ConversationID] = msg.CreatedAt
	return nil
}

func (m *memStore) ListByConversation(_ context.Context, convID uint) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.messages {
		if msg.ConversationID == convID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, convID, reader uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.ConversationID == convID && msg.SenderID != reader && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	repository.UserRepository
	ids map[uint]bool
}

func (u *memUsers) Exists(_ context.Context, id uint) (bool, error) {
	return u.ids[id], nil
}

type seqIDs struct{ n int64 }

func (s *seqIDs) GenerateID() int64 { return atomic.AddInt64(&s.n, 1) }

// memCache 同步执行异步任务的缓存
type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) AddToSet(context.Context, string, ...interface{}) error      { return nil }
func (c *memCache) GetSetMembers(context.Context, string) ([]string, error)     { return nil, nil }
func (c *memCache) RemoveFromSet(context.Context, string, ...interface{}) error { return nil }
func (c *memCache) SubmitTask(action func())                                    { action() }

// deferredCache 异步任务入队，由测试显式 drain
type deferredCache struct {
	*memCache
	tasks []func()
}

func (c *deferredCache) SubmitTask(action func()) { c.tasks = append(c.tasks, action) }

func (c *deferredCache) drain() {
	tasks := c.tasks
	c.tasks = nil
	for _, task := range tasks {
		task()
	}
}

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

func newTestService(t *testing.T, opts Options) (*messageService, *memStore) {
	t.Helper()
	store := newMemStore()
	users := &memUsers{ids: map[uint]bool{alice: true, bob: true, carol: true}}
	s, err := NewMessageService(store, store, users, &seqIDs{}, dbcall.Default(), opts)
	require.NoError(t, err)
	return s, store
}

func TestFindOrCreateConversation_Idempotent(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	first, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	second, err := s.FindOrCreateConversation(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	_, err = s.FindOrCreateConversation(ctx, alice, alice)
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	_, err = s.FindOrCreateConversation(ctx, alice, 99)
	assert.ErrorIs(t, err, errorx.ErrUserNotExist)
}

func TestSendMessage_Validation(t *testing.T) {
	s, store := newTestService(t, Options{})
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = s.SendMessage(ctx, conv.ConversationID, alice, "   \n\t")
	assert.ErrorIs(t, err, errorx.ErrEmptyMessage)

	_, err = s.SendMessage(ctx, conv.ConversationID, carol, "hi")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	long := make([]rune, 4001)
	for i := range long {
		long[i] = '好'
	}
	_, err = s.SendMessage(ctx, conv.ConversationID, alice, string(long))
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	assert.Empty(t, store.messages)
}

func TestSendAndReadScenario(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()

	conv, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	convID := conv.ConversationID

	m1, err := s.SendMessage(ctx, convID, alice, "hello")
	require.NoError(t, err)
	m2, err := s.SendMessage(ctx, convID, alice, "are you there?")
	require.NoError(t, err)
	assert.Less(t, m1.ID, m2.ID)
	assert.Equal(t, "hello", m1.Content)
	assert.False(t, m1.IsRead)

	list, err := s.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alice, list[0].OtherUser.ID)
	assert.Equal(t, int64(2), list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "are you there?", *list[0].LastMessage)

	senderView, err := s.ListConversations(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, senderView[0].UnreadCount)

	msgs, err := s.GetMessages(ctx, convID, bob)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.ID, msgs[0].ID)
	assert.True(t, msgs[0].IsRead)
	assert.True(t, msgs[1].IsRead)

	list, err = s.ListConversations(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, list[0].UnreadCount)

	_, err = s.GetMessages(ctx, convID, carol)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}

func TestMarkRead_OnlyOthersMessages(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	conv, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	_, err = s.SendMessage(ctx, conv.ConversationID, alice, "a1")
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, conv.ConversationID, bob, "b1")
	require.NoError(t, err)

	// 自己发的消息不计入
	rsp, err := s.MarkRead(ctx, conv.ConversationID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rsp.Affected)

	rsp, err = s.MarkRead(ctx, conv.ConversationID, bob)
	require.NoError(t, err)
	assert.Zero(t, rsp.Affected)

	_, err = s.MarkRead(ctx, conv.ConversationID, carol)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}

func TestListConversations_CacheInvalidatedOnSend(t *testing.T) {
	cache := newMemCache()
	s, _ := newTestService(t, Options{Cache: cache, ListTTL: time.Minute})
	ctx := context.Background()

	conv, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	list, err := s.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].LastMessage)
	assert.Contains(t, cache.data, listKey(bob))

	_, err = s.SendMessage(ctx, conv.ConversationID, alice, "ping")
	require.NoError(t, err)
	assert.NotContains(t, cache.data, listKey(bob))
	assert.NotContains(t, cache.data, listKey(alice))

	list, err = s.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "ping", *list[0].LastMessage)
	assert.Equal(t, int64(1), list[0].UnreadCount)
}

func TestListConversations_LateWriteBackDoesNotResurrectStaleList(t *testing.T) {
	cache := &deferredCache{memCache: newMemCache()}
	s, _ := newTestService(t, Options{Cache: cache, ListTTL: time.Minute})
	ctx := context.Background()

	conv, err := s.FindOrCreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	// 回写任务排队期间发生新消息
	list, err := s.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].LastMessage)

	_, err = s.SendMessage(ctx, conv.ConversationID, alice, "ping")
	require.NoError(t, err)

	cache.drain()
	assert.NotContains(t, cache.data, listKey(bob))

	list, err = s.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "ping", *list[0].LastMessage)
	assert.Equal(t, int64(1), list[0].UnreadCount)

	// 没有新的失效时回写正常生效
	cache.drain()
	assert.Contains(t, cache.data, listKey(bob))
	list, err = s.ListConversations(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "ping", *list[0].LastMessage)
}

func TestCheckParticipant_CachesPositiveAnswers(t *testing.T) {
	s, store := newTestService(t, Options{MembershipCacheSize: 16})
	ctx := context.Background()

	store.members[7] = []uint{alice, bob}
	require.NoError(t, s.CheckParticipant(ctx, 7, alice))
	require.NoError(t, s.CheckParticipant(ctx, 7, alice))
	assert.Equal(t, 1, store.memberHits)

	assert.ErrorIs(t, s.CheckParticipant(ctx, 7, carol), errorx.ErrForbidden)
	assert.ErrorIs(t, s.CheckParticipant(ctx, 7, carol), errorx.ErrForbidden)
	assert.Equal(t, 3, store.memberHits)
}
