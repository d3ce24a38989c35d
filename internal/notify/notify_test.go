package notify

import (
	"context"
	"fmt"
	"io"
	"testing"

	"communityhub/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationStore struct {
	created []*types.Notification
	failFor map[string]error
	readFor []string
	markErr error
	nextID  int
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{failFor: make(map[string]error)}
}

func (s *fakeNotificationStore) CreateNotification(ctx context.Context, notification *types.Notification) error {
	if err, ok := s.failFor[notification.UserID]; ok {
		return err
	}

	s.nextID++
	notification.ID = fmt.Sprintf("notif-%d", s.nextID)
	s.created = append(s.created, notification)
	return nil
}

func (s *fakeNotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	if s.markErr != nil {
		return s.markErr
	}

	s.readFor = append(s.readFor, userID)
	for _, n := range s.created {
		if n.UserID == userID {
			n.Status = types.NotificationStatusRead
		}
	}
	return nil
}

func newTestNotifier(store NotificationStore) *Notifier {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewNotifier(store, logger)
}

func TestNotify(t *testing.T) {
	store := newFakeNotificationStore()
	notifier := newTestNotifier(store)

	notification, err := notifier.Notify(context.Background(), "user-1", "New message", "hello", "community", "comm-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", notification.UserID)
	assert.Equal(t, types.NotificationStatusUnread, notification.Status)
	require.NotNil(t, notification.Model)
	assert.Equal(t, "community", *notification.Model)
	require.NotNil(t, notification.ModelID)
	assert.Equal(t, "comm-1", *notification.ModelID)
	assert.Len(t, store.created, 1)
}

func TestNotify_NoModelReference(t *testing.T) {
	notifier := newTestNotifier(newFakeNotificationStore())

	notification, err := notifier.Notify(context.Background(), "user-1", "Heads up", "hello", "", "")
	require.NoError(t, err)

	assert.Nil(t, notification.Model)
	assert.Nil(t, notification.ModelID)
}

func TestBroadcast(t *testing.T) {
	store := newFakeNotificationStore()
	notifier := newTestNotifier(store)

	outcomes := notifier.Broadcast(context.Background(), []string{"a", "b", "c"}, "title", "msg", "community", "comm-1")
	require.Len(t, outcomes, 3)

	for i, userID := range []string{"a", "b", "c"} {
		assert.Equal(t, userID, outcomes[i].UserID)
		assert.NoError(t, outcomes[i].Err)
		require.NotNil(t, outcomes[i].Notification)
	}
	assert.Len(t, store.created, 3)
}

func TestBroadcast_PartialFailure(t *testing.T) {
	store := newFakeNotificationStore()
	store.failFor["b"] = fmt.Errorf("insert failed")
	notifier := newTestNotifier(store)

	outcomes := notifier.Broadcast(context.Background(), []string{"a", "b", "c"}, "title", "msg", "", "")
	require.Len(t, outcomes, 3)

	// The failed recipient is recorded; the ones before and after still got
	// their notifications.
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Notification)
	assert.NoError(t, outcomes[2].Err)
	assert.Len(t, store.created, 2)
}

func TestBroadcast_NoRecipients(t *testing.T) {
	store := newFakeNotificationStore()
	notifier := newTestNotifier(store)

	outcomes := notifier.Broadcast(context.Background(), nil, "title", "msg", "", "")
	assert.Empty(t, outcomes)
	assert.Empty(t, store.created)
}

func TestMarkAllRead_Idempotent(t *testing.T) {
	store := newFakeNotificationStore()
	notifier := newTestNotifier(store)

	_, err := notifier.Notify(context.Background(), "user-1", "title", "msg", "", "")
	require.NoError(t, err)

	require.NoError(t, notifier.MarkAllRead(context.Background(), "user-1"))
	require.NoError(t, notifier.MarkAllRead(context.Background(), "user-1"))

	for _, n := range store.created {
		assert.Equal(t, types.NotificationStatusRead, n.Status)
	}
}
