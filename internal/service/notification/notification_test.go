package notification

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reconnect_server/internal/dao/mysql/repository"
	"reconnect_server/internal/model"
	"reconnect_server/internal/service/contact"
	"reconnect_server/internal/service/dbcall"
	"reconnect_server/pkg/errorx"
)

type memNotifications struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: map[uint]*model.Notification{}}
}

func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	n.CreatedAt = time.Unix(int64(1700000000+n.ID), 0)
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID uint) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID || n.IsRead {
		return 0, nil
	}
	n.IsRead = true
	return 1, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			affected++
		}
	}
	return affected, nil
}

func (m *memNotifications) Delete(_ context.Context, id, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memNotifications) ExistsForUser(_ context.Context, id, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	return ok && n.UserID == userID, nil
}

func (m *memNotifications) CountUnread(_ context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type memUsers struct {
	repository.UserRepository
	users map[uint]model.UserInfo
}

func (u *memUsers) FindByID(_ context.Context, id uint) (*model.UserInfo, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "record not found")
	}
	return &user, nil
}

func (u *memUsers) FindByIDs(_ context.Context, ids []uint) ([]model.UserInfo, error) {
	var out []model.UserInfo
	for _, id := range ids {
		if user, ok := u.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func newUsers() *memUsers {
	return &memUsers{users: map[uint]model.UserInfo{
		1: {Model: gorm.Model{ID: 1}, FirstName: "Alice", LastName: "Wang"},
		2: {Model: gorm.Model{ID: 2}, FirstName: "Bob", LastName: "Li"},
	}}
}

func TestTypeFor(t *testing.T) {
	cases := []struct {
		op, outcome string
		want        string
		ok          bool
	}{
		{contact.OpSendRequest, contact.OutcomePending, model.NotificationContactRequest, true},
		{contact.OpSendRequest, contact.OutcomeAutoAccepted, model.NotificationContactRequest, true},
		{contact.OpAccept, contact.OutcomeAccepted, model.NotificationFriendAccept, true},
		{contact.OpDecline, contact.OutcomeDeclined, model.NotificationFriendDecline, true},
		{contact.OpCancel, contact.OutcomeCancelled, "", false},
		{contact.OpRemove, contact.OutcomeRemoved, "", false},
	}
	for _, tc := range cases {
		got, ok := TypeFor(tc.op, tc.outcome)
		assert.Equal(t, tc.want, got, "%s/%s", tc.op, tc.outcome)
		assert.Equal(t, tc.ok, ok, "%s/%s", tc.op, tc.outcome)
	}
}

func TestEmitter_WritesNotificationForTarget(t *testing.T) {
	store := newMemNotifications()
	e := NewEmitter(store, newUsers(), dbcall.Default(), nil)
	ctx := context.Background()

	err := e.Notify(ctx, contact.Event{
		Operation: contact.OpSendRequest,
		Outcome:   contact.OutcomePending,
		ActorID:   1,
		TargetID:  2,
		Edge:      model.ContactEdge{ID: 7, RequesterID: 1, RecipientID: 2, Status: model.ContactStatusPending},
	})
	require.NoError(t, err)

	rows, _ := store.ListByUser(ctx, 2)
	require.Len(t, rows, 1)
	assert.Equal(t, model.NotificationContactRequest, rows[0].Type)
	assert.Equal(t, "Alice Wang 向你发送了好友申请", rows[0].Title)
	assert.Equal(t, "1", rows[0].Body)
	assert.Equal(t, uint(7), rows[0].ReferenceID)
	assert.False(t, rows[0].IsRead)

	none, _ := store.ListByUser(ctx, 1)
	assert.Empty(t, none)
}

func TestEmitter_SkipsCancelAndRemove(t *testing.T) {
	store := newMemNotifications()
	e := NewEmitter(store, newUsers(), dbcall.Default(), nil)

	for _, op := range []string{contact.OpCancel, contact.OpRemove} {
		require.NoError(t, e.Notify(context.Background(), contact.Event{Operation: op, ActorID: 1, TargetID: 2}))
	}
	assert.Empty(t, store.rows)
}

func TestEmitter_UnknownActorStillNotifies(t *testing.T) {
	store := newMemNotifications()
	e := NewEmitter(store, newUsers(), dbcall.Default(), nil)

	err := e.Notify(context.Background(), contact.Event{
		Operation: contact.OpDecline, Outcome: contact.OutcomeDeclined, ActorID: 42, TargetID: 1,
	})
	require.NoError(t, err)
	rows, _ := store.ListByUser(context.Background(), 1)
	require.Len(t, rows, 1)
	assert.Equal(t, "有用户 拒绝了你的好友申请", rows[0].Title)
}

func TestService_InboxOperationsAreOwnerScoped(t *testing.T) {
	store := newMemNotifications()
	users := newUsers()
	e := NewEmitter(store, users, dbcall.Default(), nil)
	s := NewNotificationService(store, users, dbcall.Default())
	ctx := context.Background()

	require.NoError(t, e.Notify(ctx, contact.Event{Operation: contact.OpSendRequest, Outcome: contact.OutcomePending, ActorID: 1, TargetID: 2, Edge: model.ContactEdge{ID: 1}}))
	require.NoError(t, e.Notify(ctx, contact.Event{Operation: contact.OpAccept, Outcome: contact.OutcomeAccepted, ActorID: 1, TargetID: 2, Edge: model.ContactEdge{ID: 1}}))

	list, err := s.GetByUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.NotificationFriendAccept, list[0].Type, "newest first")
	require.NotNil(t, list[0].Actor)
	assert.Equal(t, "Alice", list[0].Actor.FirstName)

	unread, err := s.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Count)

	// 其他用户无法操作
	assert.ErrorIs(t, s.MarkAsRead(ctx, list[0].ID, 1), errorx.ErrNotFoundOrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, list[0].ID, 1), errorx.ErrNotFoundOrForbidden)

	require.NoError(t, s.MarkAsRead(ctx, list[0].ID, 2))
	unread, _ = s.UnreadCount(ctx, 2)
	assert.Equal(t, int64(1), unread.Count)

	all, err := s.MarkAllAsRead(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Affected)

	require.NoError(t, s.Delete(ctx, list[1].ID, 2))
	assert.ErrorIs(t, s.Delete(ctx, list[1].ID, 2), errorx.ErrNotFoundOrForbidden)

	list, _ = s.GetByUser(ctx, 2)
	assert.Len(t, list, 1)
}

func TestService_MarkAsReadTwiceSucceedsForOwner(t *testing.T) {
	store := newMemNotifications()
	s := NewNotificationService(store, newUsers(), dbcall.Default())
	ctx := context.Background()

	n := &model.Notification{UserID: 2, Type: model.NotificationContactRequest, Title: "t"}
	require.NoError(t, store.Create(ctx, n))

	require.NoError(t, s.MarkAsRead(ctx, n.ID, 2))
	require.NoError(t, s.MarkAsRead(ctx, n.ID, 2), "已读再标记不报错")

	unread, err := s.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, unread.Count)

	assert.ErrorIs(t, s.MarkAsRead(ctx, n.ID, 1), errorx.ErrNotFoundOrForbidden)
	assert.ErrorIs(t, s.MarkAsRead(ctx, n.ID+100, 2), errorx.ErrNotFoundOrForbidden)
}

func TestService_CreateAndUnknownActor(t *testing.T) {
	store := newMemNotifications()
	s := NewNotificationService(store, newUsers(), dbcall.Default())
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &model.Notification{UserID: 1, Type: model.NotificationFriendDecline, Title: "x", Body: "99"}))
	list, err := s.GetByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Actor)
}
