// Package registrytest provides an in-memory registry.Conn for tests.
package registrytest

import (
	"context"
	"errors"
	"sync"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/storage"
)

var ErrClosed = errors.New("connection closed")

var _ registry.Conn = (*Conn)(nil)

type Conn struct {
	id string

	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	pingErr error
	closed  bool
	changed chan struct{}
	gate    chan struct{}
}

func NewConn(id string) *Conn {
	return &Conn{id: id, changed: make(chan struct{})}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	c.broadcastLocked()
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.pingErr
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.broadcastLocked()
	return nil
}

// FailSend makes every later Send return err. A nil err restores sending.
func (c *Conn) FailSend(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// HoldSends makes every later Send wait until release is called or its
// context ends.
func (c *Conn) HoldSends() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailPing makes every later Ping return err.
func (c *Conn) FailPing(err error) {
	c.mu.Lock()
	c.pingErr = err
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// Notifications decodes every sent message.
func (c *Conn) Notifications() ([]storage.Notification, error) {
	sent := c.Sent()
	out := make([]storage.Notification, 0, len(sent))
	for _, data := range sent {
		n, err := storage.Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// WaitSent blocks until at least n messages were sent or ctx is done.
func (c *Conn) WaitSent(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		count := len(c.sent)
		changed := c.changed
		c.mu.Unlock()

		if count >= n {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
