package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/garrettladley/chirp/internal/registry"
)

const defaultWriteTimeout = 10 * time.Second

var _ registry.Conn = (*Conn)(nil)

// Conn adapts a websocket to registry.Conn. Writes and pings may be called
// from any goroutine while a single reader drains the socket.
type Conn struct {
	id           string
	ws           *websocket.Conn
	remote       string
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, remote string) *Conn {
	return &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		remote:       remote,
		writeTimeout: defaultWriteTimeout,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Remote() string { return c.remote }

func (c *Conn) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if err := c.ws.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}
	return nil
}

// Close drops the connection without a close handshake.
func (c *Conn) Close() error {
	return c.ws.CloseNow()
}

// Shutdown closes the connection with a close handshake.
func (c *Conn) Shutdown(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
