package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coder/websocket"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/xcontext"
	"github.com/garrettladley/chirp/internal/xslog"
)

const defaultReadLimit = 16 << 10

type Config struct {
	// MessageRate and MessageBurst bound inbound frames per connection.
	MessageRate  float64
	MessageBurst int
	// ReadLimit caps a single inbound frame in bytes.
	ReadLimit int64
}

// Server runs the read loop of accepted sockets.
type Server struct {
	registry *registry.Registry
	service  notification.Service
	cfg      Config
}

func NewServer(reg *registry.Registry, svc notification.Service, cfg Config) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	return &Server{registry: reg, service: svc, cfg: cfg}
}

// ServeConn drives one socket until the peer goes away or ctx is cancelled.
// Cancelling ctx closes the socket with StatusGoingAway.
func (s *Server) ServeConn(ctx context.Context, ws *websocket.Conn, remote string) {
	ws.SetReadLimit(s.cfg.ReadLimit)

	conn := NewConn(ws, remote)
	base := xslog.FromContext(ctx)
	logger := base.With(xslog.ConnGroup(conn.ID(), remote))

	sess := NewSession(conn, s.registry, s.service, base, WithMessageRate(s.cfg.MessageRate, s.cfg.MessageBurst))

	readCtx, cancelRead := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRead()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Shutdown(websocket.StatusGoingAway, "server shutting down")
		cancelRead()
	})
	defer stop()

	logger.InfoContext(ctx, "socket connected")

	for {
		typ, data, err := ws.Read(readCtx)
		if err != nil {
			s.logClose(ctx, logger, err)
			break
		}
		if typ != websocket.MessageText {
			logger.WarnContext(ctx, "dropping non-text frame")
			continue
		}
		_ = sess.Handle(readCtx, data)
	}

	sess.Close(context.WithoutCancel(ctx))
	_ = conn.Close()
	logger.InfoContext(context.WithoutCancel(ctx), "socket disconnected", xslog.UserID(sess.UserID()))
}

func (s *Server) logClose(ctx context.Context, logger *slog.Logger, err error) {
	switch {
	case ctx.Err() != nil || xcontext.IsShutdownInProgress(ctx):
		logger.InfoContext(context.WithoutCancel(ctx), "socket closed for shutdown")
	case isNormalClose(err):
		logger.InfoContext(ctx, "socket closed by client", slog.Int("code", int(websocket.CloseStatus(err))))
	default:
		logger.WarnContext(ctx, "socket read failed", xslog.Error(err))
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
