package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/xslog"
)

type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotRegistered    = errors.New("connection not registered")
	ErrIdentityMismatch = errors.New("message user does not match registered user")
	ErrSessionClosed    = errors.New("session closed")
	ErrRateLimited      = errors.New("message rate exceeded")
)

// Session is the per-connection protocol state machine. Handle and Close
// must be called from a single goroutine. Replay runs on its own goroutine
// so the caller can keep reading the socket while pending messages drain.
type Session struct {
	conn     registry.Conn
	registry *registry.Registry
	service  notification.Service
	limiter  *rate.Limiter
	logger   *slog.Logger

	state  State
	userID string

	stopReplay context.CancelFunc
	replayDone chan struct{}
}

type SessionOption func(*Session)

// WithMessageRate limits inbound messages per second. A zero limit disables limiting.
func WithMessageRate(perSecond float64, burst int) SessionOption {
	return func(s *Session) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

func NewSession(conn registry.Conn, reg *registry.Registry, svc notification.Service, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		conn:     conn,
		registry: reg,
		service:  svc,
		logger:   logger.With(xslog.ConnID(conn.ID())),
		state:    StateUnregistered,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State { return s.state }

func (s *Session) UserID() string { return s.userID }

// Handle processes one inbound frame. Rejected frames are logged and the
// returned error says why; the connection stays usable either way.
func (s *Session) Handle(ctx context.Context, data []byte) error {
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.WarnContext(ctx, "dropping message, rate exceeded")
		return ErrRateLimited
	}

	msg, err := ParseControlMessage(data)
	if err != nil {
		s.logger.WarnContext(ctx, "dropping invalid message", xslog.Error(err), xslog.Data(truncate(data)))
		return err
	}

	logger := s.logger.With(xslog.MessageType(string(msg.Type)), xslog.State(s.state.String()))

	if msg.Type == MessageRegister {
		return s.register(ctx, msg.UserID)
	}

	if s.state != StateRegistered {
		logger.WarnContext(ctx, "dropping message before register")
		return ErrNotRegistered
	}
	if msg.UserID != s.userID {
		logger.WarnContext(ctx, "dropping message for another user", xslog.UserID(msg.UserID))
		return ErrIdentityMismatch
	}

	switch msg.Type {
	case MessageNotificationAck:
		return s.service.HandleAck(ctx, msg.NotificationID, s.userID)
	case MessageMarkAsRead:
		found, err := s.service.HandleMarkRead(ctx, msg.NotificationID, s.userID)
		if err != nil {
			return err
		}
		if !found {
			logger.DebugContext(ctx, "mark as read for unknown notification", xslog.NotificationID(msg.NotificationID))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
}

func (s *Session) register(ctx context.Context, userID string) error {
	if s.state == StateRegistered && s.userID != userID {
		s.logger.InfoContext(ctx, "rebinding connection", xslog.UserID(userID))
	}

	s.registry.Register(userID, s.conn)
	s.userID = userID
	s.state = StateRegistered
	s.logger.InfoContext(ctx, "connection registered", xslog.UserID(userID))

	s.startReplay(ctx, userID)
	return nil
}

// startReplay supersedes any replay still running on this connection.
func (s *Session) startReplay(ctx context.Context, userID string) {
	s.cancelReplay()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopReplay, s.replayDone = cancel, done

	go func() {
		defer close(done)
		defer cancel()

		if _, err := s.service.Replay(ctx, userID, s.conn); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "replay failed", xslog.UserID(userID), xslog.Error(err))
		}
	}()
}

// cancelReplay stops the running replay, if any, and waits for it to return.
func (s *Session) cancelReplay() {
	if s.stopReplay == nil {
		return
	}
	s.stopReplay()
	s.waitReplay()
	s.stopReplay, s.replayDone = nil, nil
}

func (s *Session) waitReplay() {
	if s.replayDone != nil {
		<-s.replayDone
	}
}

// Close moves the session to its terminal state and releases its registry entry.
func (s *Session) Close(ctx context.Context) {
	if s.state == StateClosed {
		return
	}
	prev := s.state
	s.state = StateClosed
	s.cancelReplay()
	if s.registry.Unregister(s.conn) {
		s.logger.InfoContext(ctx, "connection unregistered",
			xslog.UserID(s.userID),
			xslog.State(prev.String()),
		)
	}
}

const maxLoggedPayload = 256

func truncate(data []byte) string {
	if len(data) > maxLoggedPayload {
		return string(data[:maxLoggedPayload]) + "..."
	}
	return string(data)
}
