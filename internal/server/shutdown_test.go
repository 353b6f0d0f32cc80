package server

import (
	"context"
	"testing"
	"time"
)

func TestShutdownCoordinator(t *testing.T) {
	t.Parallel()

	sc := NewShutdownCoordinator(20 * time.Millisecond)
	base := sc.BaseContext()

	if base.Err() != nil {
		t.Fatal("base context cancelled before shutdown")
	}

	start := time.Now()
	sc.InitiateShutdown(t.Context())

	if base.Err() == nil {
		t.Error("base context not cancelled")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %v, before the grace period", elapsed)
	}
}

func TestShutdownCoordinatorContextCancel(t *testing.T) {
	t.Parallel()

	sc := NewShutdownCoordinator(time.Hour)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	done := make(chan struct{})
	go func() {
		sc.InitiateShutdown(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("InitiateShutdown ignored a cancelled context")
	}
}
