package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisNotificationStore(t *testing.T) {
	t.Parallel()

	runStoreSuite(t, func(t *testing.T) storeHarness {
		mr, client := newMiniredis(t)
		clock := newTestClock()
		store := NewRedisNotificationStore(client, WithRedisClock(clock.Now))
		return storeHarness{
			store: store,
			clock: clock,
			expire: func(d time.Duration) {
				clock.Advance(d)
				mr.FastForward(d)
			},
		}
	})
}

func TestRedisNotificationStoreKeys(t *testing.T) {
	t.Parallel()

	mr, client := newMiniredis(t)
	store := NewRedisNotificationStore(client)
	ctx := t.Context()

	n := NewNotification("alice", "one")
	require.NoError(t, store.AppendNotification(ctx, n))
	require.NoError(t, store.AppendPending(ctx, NewNotification("alice", "two")))

	require.True(t, mr.Exists("notifications:alice"))
	require.True(t, mr.Exists("pending:notifications:alice"))
	require.Equal(t, NotificationTTL, mr.TTL("notifications:alice"))
	require.Equal(t, NotificationTTL, mr.TTL("notifications:alice:index"))
	require.Equal(t, PendingTTL, mr.TTL("pending:notifications:alice"))

	member := mr.HGet("notifications:alice:index", n.ID)
	require.NotEmpty(t, member)
	members, err := mr.ZMembers("notifications:alice")
	require.NoError(t, err)
	require.Equal(t, []string{member}, members)
}

func TestRedisMarkReadConcurrent(t *testing.T) {
	t.Parallel()

	_, client := newMiniredis(t)
	store := NewRedisNotificationStore(client)
	ctx := t.Context()

	ids := make([]string, 0, 5)
	for range 5 {
		n := NewNotification("alice", "msg")
		require.NoError(t, store.AppendNotification(ctx, n))
		ids = append(ids, n.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for range 3 {
			wg.Go(func() {
				_, _ = store.MarkRead(ctx, "alice", id)
			})
		}
	}
	wg.Wait()

	got, err := store.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	for _, n := range got {
		require.True(t, n.Read, "notification %s not read", n.ID)
	}
}
