package server

import (
	"context"
	"time"
)

// ShutdownCoordinator gives long-lived sockets a head start on shutdown:
// their request contexts are cancelled before http.Server.Shutdown runs,
// which does not wait for hijacked connections.
type ShutdownCoordinator struct {
	baseCtx     context.Context
	cancel      context.CancelFunc
	gracePeriod time.Duration
}

func NewShutdownCoordinator(gracePeriod time.Duration) *ShutdownCoordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownCoordinator{
		baseCtx:     ctx,
		cancel:      cancel,
		gracePeriod: gracePeriod,
	}
}

// BaseContext is the parent of every request context.
func (sc *ShutdownCoordinator) BaseContext() context.Context {
	return sc.baseCtx
}

// InitiateShutdown cancels the base context, then blocks for the grace period
// or until ctx is done so sockets can send their close frames.
func (sc *ShutdownCoordinator) InitiateShutdown(ctx context.Context) {
	sc.cancel()

	timer := time.NewTimer(sc.gracePeriod)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
