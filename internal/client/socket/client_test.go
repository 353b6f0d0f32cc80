package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/garrettladley/chirp/internal/realtime"
	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

type received struct {
	mu    sync.Mutex
	items []storage.Notification
}

func (r *received) handle(_ context.Context, n storage.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *received) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fixture struct {
	store      *storage.MemoryNotificationStore
	registry   *registry.Registry
	dispatcher *notification.Dispatcher
	server     *httptest.Server
	dials      atomic.Int32
	rejects    atomic.Int32
}

// newFixture serves the socket endpoint, refusing the first reject upgrades.
func newFixture(t *testing.T, reject int32) *fixture {
	t.Helper()

	logger := xslog.Discard()
	f := &fixture{
		store:    storage.NewMemoryNotificationStore(),
		registry: registry.New(logger),
	}
	t.Cleanup(func() { _ = f.store.Close() })
	f.dispatcher = notification.NewDispatcher(f.store, f.registry, notification.NewAckTracker(), logger)
	f.rejects.Store(reject)

	srv := realtime.NewServer(f.registry, f.dispatcher, realtime.Config{MessageRate: 100, MessageBurst: 100})
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.dials.Add(1)
		if r.URL.Path != socketPath || r.Header.Get(xhttp.XAPIKey) != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if f.rejects.Add(-1) >= 0 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		srv.ServeConn(r.Context(), ws, r.RemoteAddr)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func startClient(t *testing.T, f *fixture, r *received, opts ...Option) context.CancelFunc {
	t.Helper()

	opts = append([]Option{WithBackoff(10*time.Millisecond, 40*time.Millisecond)}, opts...)
	c, err := NewClient(f.server.URL, "key", "alice", xslog.Discard(), opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Connect(ctx, r.handle) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Error("client did not stop")
		}
	})
	return cancel
}

func TestNewClientURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "http", baseURL: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "https trailing slash", baseURL: "https://chirp.example.com/", want: "wss://chirp.example.com/ws"},
		{name: "ws", baseURL: "ws://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "ftp", baseURL: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(tt.baseURL, "", "alice", xslog.Discard())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c.url)
		})
	}
}

func TestClientReceivesAndAcks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	ctx := t.Context()

	_, err := f.dispatcher.Dispatch(ctx, "alice", "queued while offline")
	require.NoError(t, err)

	r := &received{}
	acked := &received{}
	startClient(t, f, r, WithAckHook(acked.handle))

	require.Eventually(t, func() bool { return r.Len() == 1 }, 5*time.Second, 5*time.Millisecond)

	live, err := f.dispatcher.Dispatch(ctx, "alice", "bob vous suit maintenant!")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.Len() == 2 }, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		list, err := f.dispatcher.ListNotifications(ctx, "alice")
		return err == nil && len(list.Notifications) == 2 && list.Unread == 0
	}, 5*time.Second, 5*time.Millisecond)
	require.Zero(t, f.dispatcher.Stats().AwaitingAcks)
	require.Eventually(t, func() bool { return acked.Len() == 2 }, 5*time.Second, 5*time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Equal(t, "queued while offline", r.items[0].Message)
	require.Equal(t, live.ID, r.items[1].ID)
}

func TestClientReconnects(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	r := &received{}
	startClient(t, f, r)

	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, 5*time.Second, 5*time.Millisecond)
	require.GreaterOrEqual(t, f.dials.Load(), int32(3))

	conn, ok := f.registry.Lookup("alice")
	require.True(t, ok)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		next, ok := f.registry.Lookup("alice")
		return ok && next.ID() != conn.ID()
	}, 5*time.Second, 5*time.Millisecond)
}
