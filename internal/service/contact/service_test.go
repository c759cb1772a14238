package contact

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reconnect_server/internal/dao/mysql/repository"
	myredis "reconnect_server/internal/dao/redis"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/errorx"
)

// ==================== 内存实现 ====================

type memContacts struct {
	mu     sync.Mutex
	nextID uint
	edges  map[uint]*model.ContactEdge
	// createHook 在插入前调用，用于模拟并发写入
	createHook func()
}

func newMemContacts() *memContacts {
	return &memContacts{edges: map[uint]*model.ContactEdge{}}
}

func (m *memContacts) FindBetween(_ context.Context, a, b uint) (*model.ContactEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.PairKey(a, b)
	for _, e := range m.edges {
		if e.PairKey == key {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "record not found")
}

func (m *memContacts) FindByID(_ context.Context, id uint) (*model.ContactEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "record not found")
	}
	cp := *e
	return &cp, nil
}

func (m *memContacts) Create(_ context.Context, edge *model.ContactEdge) error {
	if m.createHook != nil {
		hook := m.createHook
		m.createHook = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	edge.PairKey = model.PairKey(edge.RequesterID, edge.RecipientID)
	for _, e := range m.edges {
		if e.PairKey == edge.PairKey {
			return errorx.New(errorx.CodeConflict, "duplicate pair")
		}
	}
	m.nextID++
	edge.ID = m.nextID
	edge.CreatedAt = time.Now()
	edge.UpdatedAt = edge.CreatedAt
	cp := *edge
	m.edges[edge.ID] = &cp
	return nil
}

// insertRaw 绕过 createHook 直接插入
func (m *memContacts) insertRaw(requester, recipient uint, status string) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.edges[m.nextID] = &model.ContactEdge{
		ID:          m.nextID,
		RequesterID: requester,
		RecipientID: recipient,
		PairKey:     model.PairKey(requester, recipient),
		Status:      status,
	}
	return m.nextID
}

func (m *memContacts) AcceptPending(_ context.Context, id, recipient uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[id]
	if !ok || e.Status != model.ContactStatusPending || e.RecipientID != recipient {
		return 0, nil
	}
	e.Status = model.ContactStatusAccepted
	e.UpdatedAt = time.Now()
	return 1, nil
}

func (m *memContacts) deleteIf(id uint, ok func(e *model.ContactEdge) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, found := m.edges[id]
	if !found || !ok(e) {
		return 0
	}
	delete(m.edges, id)
	return 1
}

func (m *memContacts) DeletePendingByRecipient(_ context.Context, id, user uint) (int64, error) {
	return m.deleteIf(id, func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusPending && e.RecipientID == user
	}), nil
}

func (m *memContacts) DeletePendingByRequester(_ context.Context, id, user uint) (int64, error) {
	return m.deleteIf(id, func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusPending && e.RequesterID == user
	}), nil
}

func (m *memContacts) DeleteAccepted(_ context.Context, id, user uint) (int64, error) {
	return m.deleteIf(id, func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusAccepted && (e.RequesterID == user || e.RecipientID == user)
	}), nil
}

func (m *memContacts) listWhere(ok func(e *model.ContactEdge) bool, other func(e *model.ContactEdge) uint) []repository.ContactView {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ContactView
	for _, e := range m.edges {
		if ok(e) {
			out = append(out, repository.ContactView{
				EdgeID: e.ID, RequesterID: e.RequesterID, RecipientID: e.RecipientID,
				Status: e.Status, UserID: other(e),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EdgeID > out[j].EdgeID })
	return out
}

func (m *memContacts) ListIncoming(_ context.Context, user uint) ([]repository.ContactView, error) {
	return m.listWhere(func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusPending && e.RecipientID == user
	}, func(e *model.ContactEdge) uint { return e.RequesterID }), nil
}

func (m *memContacts) ListSent(_ context.Context, user uint) ([]repository.ContactView, error) {
	return m.listWhere(func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusPending && e.RequesterID == user
	}, func(e *model.ContactEdge) uint { return e.RecipientID }), nil
}

func (m *memContacts) ListFriends(_ context.Context, user uint) ([]repository.ContactView, error) {
	return m.listWhere(func(e *model.ContactEdge) bool {
		return e.Status == model.ContactStatusAccepted && (e.RequesterID == user || e.RecipientID == user)
	}, func(e *model.ContactEdge) uint { return e.OtherParty(user) }), nil
}

func (m *memContacts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// memUsers 只关心用户是否存在
type memUsers struct {
	repository.UserRepository
	ids map[uint]bool
}

func (u *memUsers) Exists(_ context.Context, id uint) (bool, error) {
	return u.ids[id], nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, ev Event) error {
	return m.Called(ctx, ev).Error(0)
}

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

func newTestService(t *testing.T) (*contactService, *memContacts, *mockNotifier) {
	t.Helper()
	contacts := newMemContacts()
	users := &memUsers{ids: map[uint]bool{alice: true, bob: true, carol: true}}
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewContactService(contacts, users, notifier, nil, dbcall.Default(), nil), contacts, notifier
}

func status(t *testing.T, s *contactService, a, b uint) string {
	t.Helper()
	rsp, err := s.GetRelationStatus(context.Background(), a, b)
	require.NoError(t, err)
	return rsp.Status
}

// ==================== 测试 ====================

func TestSendRequest_Pending(t *testing.T) {
	s, contacts, notifier := newTestService(t)
	ctx := context.Background()

	rsp, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, rsp.Accepted)
	assert.NotZero(t, rsp.EdgeID)

	assert.Equal(t, RelationPendingSent, status(t, s, alice, bob))
	assert.Equal(t, RelationPendingReceived, status(t, s, bob, alice))
	assert.Equal(t, 1, contacts.count())

	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Operation == OpSendRequest && ev.Outcome == OutcomePending &&
			ev.ActorID == alice && ev.TargetID == bob && ev.Edge.ID == rsp.EdgeID
	}))
}

func TestSendRequest_Errors(t *testing.T) {
	s, contacts, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SendRequest(ctx, alice, alice)
	assert.ErrorIs(t, err, errorx.ErrSelfRequest)

	_, err = s.SendRequest(ctx, alice, 99)
	assert.Equal(t, errorx.CodeUserNotExist, errorx.GetCode(err))

	_, err = s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = s.SendRequest(ctx, alice, bob)
	assert.ErrorIs(t, err, errorx.ErrDuplicateRequest)

	contacts.insertRaw(alice, carol, model.ContactStatusAccepted)
	_, err = s.SendRequest(ctx, carol, alice)
	assert.ErrorIs(t, err, errorx.ErrAlreadyFriends)
	_, err = s.SendRequest(ctx, alice, carol)
	assert.ErrorIs(t, err, errorx.ErrAlreadyFriends)
}

func TestSendRequest_AutoAcceptsMutualRequest(t *testing.T) {
	s, contacts, notifier := newTestService(t)
	ctx := context.Background()

	first, err := s.SendRequest(ctx, bob, alice)
	require.NoError(t, err)
	require.False(t, first.Accepted)

	second, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, second.Accepted)
	assert.Equal(t, first.EdgeID, second.EdgeID)
	assert.Equal(t, 1, contacts.count())

	assert.Equal(t, RelationFriend, status(t, s, alice, bob))
	assert.Equal(t, RelationFriend, status(t, s, bob, alice))

	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Outcome == OutcomeAutoAccepted && ev.ActorID == alice && ev.TargetID == bob &&
			ev.Edge.Status == model.ContactStatusAccepted
	}))
}

func TestSendRequest_ConcurrentInsertBecomesAutoAccept(t *testing.T) {
	s, contacts, _ := newTestService(t)

	// alice 判定为无记录后、插入前，bob 的申请先落库
	contacts.createHook = func() {
		contacts.insertRaw(bob, alice, model.ContactStatusPending)
	}

	rsp, err := s.SendRequest(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.True(t, rsp.Accepted)
	assert.Equal(t, 1, contacts.count())
	assert.Equal(t, RelationFriend, status(t, s, alice, bob))
}

func TestSendRequest_ConcurrentMutualRequestsLeaveOneEdge(t *testing.T) {
	s, contacts, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i, pair := range [][2]uint{{alice, bob}, {bob, alice}} {
		wg.Add(1)
		go func(i int, from, to uint) {
			defer wg.Done()
			rsp, err := s.SendRequest(ctx, from, to)
			errs[i] = err
			if err == nil {
				results[i] = rsp.Accepted
			}
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, contacts.count())
	assert.True(t, results[0] != results[1], "exactly one side auto-accepts")
	assert.Equal(t, RelationFriend, status(t, s, alice, bob))
}

func TestAcceptRequest(t *testing.T) {
	s, _, notifier := newTestService(t)
	ctx := context.Background()

	sent, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	// 申请人自己不能通过
	_, err = s.AcceptRequest(ctx, sent.EdgeID, alice)
	assert.ErrorIs(t, err, errorx.ErrNotFoundOrForbidden)

	edge, err := s.AcceptRequest(ctx, sent.EdgeID, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, edge.RequesterID)
	assert.Equal(t, bob, edge.RecipientID)
	assert.Equal(t, model.ContactStatusAccepted, edge.Status)

	friendA, err := s.GetRelationStatus(ctx, alice, bob)
	require.NoError(t, err)
	friendB, err := s.GetRelationStatus(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, RelationFriend, friendA.Status)
	assert.Equal(t, RelationFriend, friendB.Status)
	assert.Equal(t, sent.EdgeID, *friendA.EdgeID)
	assert.Equal(t, sent.EdgeID, *friendB.EdgeID)

	// 已通过的申请不能再次通过
	_, err = s.AcceptRequest(ctx, sent.EdgeID, bob)
	assert.ErrorIs(t, err, errorx.ErrNotFoundOrForbidden)

	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Operation == OpAccept && ev.ActorID == bob && ev.TargetID == alice
	}))
}

func TestDeclineRequest(t *testing.T) {
	s, contacts, notifier := newTestService(t)
	ctx := context.Background()

	sent, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	_, err = s.DeclineRequest(ctx, sent.EdgeID, carol)
	assert.ErrorIs(t, err, errorx.ErrNotFoundOrForbidden)
	_, err = s.DeclineRequest(ctx, 999, bob)
	assert.ErrorIs(t, err, errorx.ErrNotFoundOrForbidden)

	edge, err := s.DeclineRequest(ctx, sent.EdgeID, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, edge.RequesterID)
	assert.Zero(t, contacts.count())
	assert.Equal(t, RelationNone, status(t, s, alice, bob))

	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Operation == OpDecline && ev.TargetID == alice
	}))
}

func TestCancelSentRequest(t *testing.T) {
	s, contacts, notifier := newTestService(t)
	ctx := context.Background()

	sent, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	// 接收人不能撤回
	assert.ErrorIs(t, s.CancelSentRequest(ctx, sent.EdgeID, bob), errorx.ErrNotFoundOrForbidden)
	require.NoError(t, s.CancelSentRequest(ctx, sent.EdgeID, alice))
	assert.Zero(t, contacts.count())

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Operation == OpCancel
	}))
}

func TestRemoveFriend_ThenFreshRequest(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	sent, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)

	// 待处理的申请不能按好友删除
	assert.ErrorIs(t, s.RemoveFriend(ctx, sent.EdgeID, alice), errorx.ErrNotFoundOrForbidden)

	_, err = s.AcceptRequest(ctx, sent.EdgeID, bob)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveFriend(ctx, sent.EdgeID, carol), errorx.ErrNotFoundOrForbidden)
	require.NoError(t, s.RemoveFriend(ctx, sent.EdgeID, bob))
	assert.Equal(t, RelationNone, status(t, s, alice, bob))

	again, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	assert.False(t, again.Accepted)
	assert.Equal(t, RelationPendingSent, status(t, s, alice, bob))
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	contacts := newMemContacts()
	users := &memUsers{ids: map[uint]bool{alice: true, bob: true}}
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(assert.AnError)
	s := NewContactService(contacts, users, notifier, nil, dbcall.Default(), nil)

	rsp, err := s.SendRequest(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.NotZero(t, rsp.EdgeID)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestLists(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SendRequest(ctx, alice, bob)
	require.NoError(t, err)
	toCarol, err := s.SendRequest(ctx, carol, alice)
	require.NoError(t, err)
	_, err = s.AcceptRequest(ctx, toCarol.EdgeID, alice)
	require.NoError(t, err)

	sent, err := s.ListSent(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, bob, sent[0].User.ID)

	incoming, err := s.ListIncoming(ctx, bob)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, alice, incoming[0].User.ID)

	friends, err := s.ListFriends(ctx, alice)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, carol, friends[0].User.ID)
	assert.Nil(t, friends[0].Online, "未配置在线状态时不返回")
}

type stubPresence struct {
	members []string
	err     error
}

func (p stubPresence) GetSetMembers(_ context.Context, key string) ([]string, error) {
	if key != myredis.OnlineUsersKey {
		return nil, nil
	}
	return p.members, p.err
}

func TestListFriends_MarksOnlineFriends(t *testing.T) {
	contacts := newMemContacts()
	users := &memUsers{ids: map[uint]bool{alice: true, bob: true, carol: true}}
	s := NewContactService(contacts, users, nil, stubPresence{members: []string{"3", "9"}}, dbcall.Default(), nil)
	ctx := context.Background()

	for _, other := range []uint{bob, carol} {
		req, err := s.SendRequest(ctx, other, alice)
		require.NoError(t, err)
		_, err = s.AcceptRequest(ctx, req.EdgeID, alice)
		require.NoError(t, err)
	}

	friends, err := s.ListFriends(ctx, alice)
	require.NoError(t, err)
	require.Len(t, friends, 2)
	online := map[uint]bool{}
	for _, f := range friends {
		require.NotNil(t, f.Online)
		online[f.User.ID] = *f.Online
	}
	assert.Equal(t, map[uint]bool{bob: false, carol: true}, online)
}

func TestListFriends_PresenceFailureStillLists(t *testing.T) {
	contacts := newMemContacts()
	users := &memUsers{ids: map[uint]bool{alice: true, bob: true}}
	s := NewContactService(contacts, users, nil, stubPresence{err: assert.AnError}, dbcall.Default(), nil)
	ctx := context.Background()

	req, err := s.SendRequest(ctx, bob, alice)
	require.NoError(t, err)
	_, err = s.AcceptRequest(ctx, req.EdgeID, alice)
	require.NoError(t, err)

	friends, err := s.ListFriends(ctx, alice)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Nil(t, friends[0].Online)
}
