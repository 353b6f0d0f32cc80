package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/chirp/internal/realtime"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xhttp"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2

	socketPath   = "/ws"
	writeTimeout = 10 * time.Second
)

var ErrUnexpectedFrame = errors.New("unexpected frame")

type NotificationHandler func(ctx context.Context, n storage.Notification)

type Client struct {
	url        string
	userID     string
	httpClient *http.Client
	logger     *slog.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
	onAck          NotificationHandler
}

type Option func(*Client)

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(initial, ceiling time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = ceiling
	}
}

// WithAckHook calls fn after an acknowledgement is written.
func WithAckHook(fn NotificationHandler) Option {
	return func(c *Client) { c.onAck = fn }
}

// NewClient returns a client that registers as userID against the server at
// baseURL (http or https).
func NewClient(baseURL, apiKey, userID string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + socketPath)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		url:            u.String(),
		userID:         userID,
		httpClient:     xhttp.NewHTTPClient(xhttp.WithTransport(xhttp.NewTransport("notifyctl", apiKey))),
		logger:         logger,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect keeps a registered socket open and calls handler for each
// notification, acknowledging those that require it after handler returns.
// It reconnects with exponential backoff and returns when ctx is cancelled.
func (c *Client) Connect(ctx context.Context, handler NotificationHandler) error {
	backoff := c.initialBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		registered, err := c.connectOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if registered {
			backoff = c.initialBackoff
		}

		c.logger.WarnContext(ctx, "socket connection lost, reconnecting",
			xslog.Error(err),
			xslog.Backoff(backoff),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= backoffFactor
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// connectOnce dials, registers and reads until the socket fails. registered
// reports whether the register frame was written.
func (c *Client) connectOnce(ctx context.Context, handler NotificationHandler) (registered bool, err error) {
	ws, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPClient: c.httpClient})
	if err != nil {
		return false, fmt.Errorf("dialing: %w", err)
	}
	defer func() { _ = ws.CloseNow() }()

	if err := c.write(ctx, ws, realtime.ControlMessage{Type: realtime.MessageRegister, UserID: c.userID}); err != nil {
		return false, fmt.Errorf("registering: %w", err)
	}

	c.logger.InfoContext(ctx, "socket registered", xslog.UserID(c.userID))

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = ws.Close(websocket.StatusNormalClosure, "")
			}
			return true, fmt.Errorf("reading: %w", err)
		}
		if typ != websocket.MessageText {
			c.logger.WarnContext(ctx, "ignoring frame", xslog.Error(ErrUnexpectedFrame))
			continue
		}

		n, err := storage.Decode(data)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to parse notification",
				xslog.Error(err),
				xslog.Data(string(data)),
			)
			continue
		}

		handler(ctx, n)

		if n.RequiresAck {
			ack := realtime.ControlMessage{Type: realtime.MessageNotificationAck, UserID: c.userID, NotificationID: n.ID}
			if err := c.write(ctx, ws, ack); err != nil {
				return true, fmt.Errorf("acknowledging: %w", err)
			}
			if c.onAck != nil {
				c.onAck(ctx, n)
			}
		}
	}
}

func (c *Client) write(ctx context.Context, ws *websocket.Conn, msg realtime.ControlMessage) error {
	data, err := go_json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
