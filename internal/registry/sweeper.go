package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/garrettladley/chirp/internal/xslog"
)

// Sweeper runs Registry.Sweep on a fixed interval.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSweeper(registry *Registry, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = SweepInterval
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps every interval until ctx is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "connection sweeper started", xslog.Interval(s.interval))

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			evicted := s.registry.Sweep(ctx)
			if evicted > 0 {
				s.logger.InfoContext(ctx, "connection sweep evicted entries",
					xslog.Count(evicted),
					xslog.Duration(time.Since(start)),
				)
			}
		case <-ctx.Done():
			s.logger.InfoContext(context.WithoutCancel(ctx), "connection sweeper stopped")
			return nil
		}
	}
}

// Stop cancels a running sweeper and waits for it to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
