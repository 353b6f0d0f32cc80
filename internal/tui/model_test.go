package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/chirp/internal/storage"
)

func newTestModel() Model {
	m := New(Deps{UserID: "alice"})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func ids(ns []storage.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func TestModelAddsNewestFirst(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		m.add(storage.NewNotification("alice", "msg "+id, storage.WithID(id), storage.WithTimestamp(base.Add(time.Duration(i)*time.Minute))))
	}

	if diff := cmp.Diff([]string{"c", "b", "a"}, ids(m.notifications)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.render(), "msg c") {
		t.Error("render missing newest notification")
	}
}

func TestModelCursor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []string
		want int
	}{
		{name: "starts at top", want: 0},
		{name: "down", keys: []string{"j"}, want: 1},
		{name: "clamps at bottom", keys: []string{"j", "down", "j", "j"}, want: 2},
		{name: "clamps at top", keys: []string{"k", "up"}, want: 0},
		{name: "home", keys: []string{"j", "j", "g"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newTestModel()
			for _, id := range []string{"a", "b", "c"} {
				m.add(storage.NewNotification("alice", id, storage.WithID(id)))
			}
			for _, k := range tt.keys {
				if cmd := m.handleKey(k); cmd != nil {
					t.Fatalf("key %q returned a command", k)
				}
			}
			if m.cursor != tt.want {
				t.Errorf("cursor = %d, want %d", m.cursor, tt.want)
			}
		})
	}
}

func TestModelCursorFollowsSelection(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.add(storage.NewNotification("alice", "a", storage.WithID("a")))
	m.add(storage.NewNotification("alice", "b", storage.WithID("b")))
	m.handleKey("j")

	m.add(storage.NewNotification("alice", "c", storage.WithID("c")))

	if got := m.notifications[m.cursor].ID; got != "a" {
		t.Errorf("selected %q, want %q", got, "a")
	}
}

func TestModelQuit(t *testing.T) {
	t.Parallel()

	cancelled := false
	m := New(Deps{Cancel: func() { cancelled = true }})

	if cmd := m.handleKey("q"); cmd == nil {
		t.Error("q did not return a command")
	}
	if !cancelled {
		t.Error("q did not cancel the listener")
	}
}

func TestModelDisconnected(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.Update(DisconnectedMsg{Err: errors.New("dial refused")})

	if !strings.Contains(m.render(), "dial refused") {
		t.Error("render missing disconnect error")
	}
}
