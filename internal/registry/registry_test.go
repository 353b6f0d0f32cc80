package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/registry/registrytest"
	"github.com/garrettladley/chirp/internal/xslog"
)

func TestRegisterLookup(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	c1 := registrytest.NewConn("c1")

	if _, ok := r.Lookup("alice"); ok {
		t.Fatal("expected no entry before register")
	}

	r.Register("alice", c1)

	got, ok := r.Lookup("alice")
	if !ok || got.ID() != "c1" {
		t.Fatalf("Lookup() = (%v, %v), want c1", got, ok)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegisterOverwrite(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	c1 := registrytest.NewConn("c1")
	c2 := registrytest.NewConn("c2")

	r.Register("alice", c1)
	r.Register("alice", c2)

	got, _ := r.Lookup("alice")
	if got.ID() != "c2" {
		t.Fatalf("Lookup() = %s, want c2", got.ID())
	}
	if c1.Closed() {
		t.Error("overwritten connection must stay open")
	}

	if r.Unregister(c1) {
		t.Error("Unregister(stale conn) removed an entry")
	}
	if got, ok := r.Lookup("alice"); !ok || got.ID() != "c2" {
		t.Fatal("stale unregister must not remove the newer entry")
	}

	if !r.Unregister(c2) {
		t.Error("Unregister(current conn) = false, want true")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Error("expected entry removed")
	}
}

func TestRegisterRebind(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	c1 := registrytest.NewConn("c1")

	r.Register("alice", c1)
	r.Register("bob", c1)

	if _, ok := r.Lookup("alice"); ok {
		t.Error("rebinding a connection must drop its previous user")
	}
	if got, ok := r.Lookup("bob"); !ok || got.ID() != "c1" {
		t.Error("expected bob bound to c1")
	}
	if user, _ := r.UserOf("c1"); user != "bob" {
		t.Errorf("UserOf(c1) = %q, want bob", user)
	}
	if diff := cmp.Diff([]string{"bob"}, r.Users()); diff != "" {
		t.Errorf("Users() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnregisterUnknown(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	if r.Unregister(registrytest.NewConn("ghost")) {
		t.Error("Unregister(unknown) = true, want false")
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	healthy := registrytest.NewConn("healthy")
	stale := registrytest.NewConn("stale")
	stale.FailPing(errors.New("pong timeout"))

	r.Register("alice", healthy)
	r.Register("bob", stale)

	if got := r.Sweep(t.Context()); got != 1 {
		t.Errorf("Sweep() = %d, want 1", got)
	}
	if !stale.Closed() {
		t.Error("evicted connection should be closed")
	}
	if healthy.Closed() {
		t.Error("healthy connection should stay open")
	}
	if diff := cmp.Diff([]string{"alice"}, r.Users()); diff != "" {
		t.Errorf("Users() mismatch (-want +got):\n%s", diff)
	}

	if got := r.Sweep(t.Context()); got != 0 {
		t.Errorf("second Sweep() = %d, want 0", got)
	}
}

func TestSweeperEvictsWithinInterval(t *testing.T) {
	t.Parallel()

	r := registry.New(xslog.Discard())
	stale := registrytest.NewConn("stale")
	r.Register("alice", stale)
	stale.FailPing(errors.New("gone"))

	s := registry.NewSweeper(r, 10*time.Millisecond, xslog.Discard())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not evict stale connection")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
