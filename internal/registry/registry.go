package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	// SweepInterval is how often registered connections are pinged.
	SweepInterval = 30 * time.Second
	// PingTimeout bounds a single liveness ping.
	PingTimeout = 10 * time.Second

	maxConcurrentPings = 32
)

// Conn is a live, bidirectional client connection.
type Conn interface {
	// ID uniquely identifies the connection for the lifetime of the process.
	ID() string
	// Send transmits one message.
	Send(ctx context.Context, data []byte) error
	// Ping checks liveness.
	Ping(ctx context.Context) error
	Close() error
}

// Registry maps user ids to their live connection. Registration is
// last-write-wins and an overwritten connection is left open.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string
	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
		logger: logger,
	}
}

// Register binds userID to conn. If conn was bound to another user, that
// binding is dropped. If userID was bound to another connection, the old
// connection stays open but is no longer reachable through the registry.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	if prevUser, ok := r.byConn[connID]; ok && prevUser != userID {
		if cur, ok := r.byUser[prevUser]; ok && cur.ID() == connID {
			delete(r.byUser, prevUser)
		}
	}
	if prev, ok := r.byUser[userID]; ok && prev.ID() != connID {
		delete(r.byConn, prev.ID())
	}

	r.byUser[userID] = conn
	r.byConn[connID] = userID
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

// Unregister removes conn's entry if the entry still points at conn.
// It reports whether an entry was removed.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregisterLocked(conn.ID())
}

func (r *Registry) unregisterLocked(connID string) bool {
	userID, ok := r.byConn[connID]
	if !ok {
		return false
	}
	delete(r.byConn, connID)

	if cur, ok := r.byUser[userID]; ok && cur.ID() == connID {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// UserOf returns the user a connection is currently bound to.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[connID]
	return userID, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}

// Users returns the registered user ids in sorted order.
func (r *Registry) Users() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}

type entry struct {
	userID string
	conn   Conn
}

func (r *Registry) snapshot() []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]entry, 0, len(r.byUser))
	for userID, conn := range r.byUser {
		entries = append(entries, entry{userID: userID, conn: conn})
	}
	return entries
}

// Sweep pings every registered connection and evicts the ones that fail.
// Evicted connections are closed. It returns the number of evictions.
func (r *Registry) Sweep(ctx context.Context) int {
	entries := r.snapshot()

	var (
		mu      sync.Mutex
		evicted int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPings)

	for _, e := range entries {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(gctx, PingTimeout)
			err := e.conn.Ping(pingCtx)
			cancel()
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}

			if !r.evict(e.conn) {
				return nil
			}
			mu.Lock()
			evicted++
			mu.Unlock()

			r.logger.WarnContext(ctx, "evicting unresponsive connection",
				xslog.UserID(e.userID),
				xslog.ConnID(e.conn.ID()),
				xslog.Error(err),
			)
			if cerr := e.conn.Close(); cerr != nil {
				r.logger.DebugContext(ctx, "failed to close evicted connection",
					xslog.ConnID(e.conn.ID()),
					xslog.Error(cerr),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return evicted
}

func (r *Registry) evict(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregisterLocked(conn.ID())
}
