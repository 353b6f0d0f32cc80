package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

var _ NotificationStore = (*MemoryNotificationStore)(nil)

type memoryEntry struct {
	n     Notification
	score int64
}

type memoryList struct {
	entries   []memoryEntry
	expiresAt time.Time
}

// MemoryNotificationStore mirrors the Redis layout in process memory.
// A list expires as a whole once its retention passes without an append.
type MemoryNotificationStore struct {
	mu            sync.Mutex
	notifications map[string]*memoryList
	pending       map[string]*memoryList
	now           Clock

	done     chan struct{}
	stopOnce sync.Once
}

type MemoryOption func(*MemoryNotificationStore)

func WithMemoryClock(now Clock) MemoryOption {
	return func(s *MemoryNotificationStore) { s.now = now }
}

func NewMemoryNotificationStore(opts ...MemoryOption) *MemoryNotificationStore {
	s := &MemoryNotificationStore{
		notifications: make(map[string]*memoryList),
		pending:       make(map[string]*memoryList),
		now:           systemClock,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

func (s *MemoryNotificationStore) AppendNotification(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(s.notifications, n, NotificationTTL)
	return nil
}

func (s *MemoryNotificationStore) AppendPending(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(s.pending, n, PendingTTL)
	return nil
}

func (s *MemoryNotificationStore) append(lists map[string]*memoryList, n Notification, ttl time.Duration) {
	now := s.now()
	l := s.live(lists, n.RecipientID, now)
	if l == nil {
		l = &memoryList{}
		lists[n.RecipientID] = l
	}
	l.entries = slices.DeleteFunc(l.entries, func(e memoryEntry) bool {
		if e.n.ID != n.ID {
			return false
		}
		n.Read = n.Read || e.n.Read
		return true
	})
	l.entries = insertByScore(l.entries, memoryEntry{n: n, score: now.UnixMilli()})
	l.expiresAt = now.Add(ttl)
}

func (s *MemoryNotificationStore) ListPending(_ context.Context, userID string) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.live(s.pending, userID, s.now())
	if l == nil {
		return []Notification{}, nil
	}
	out := make([]Notification, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.n)
	}
	return out, nil
}

func (s *MemoryNotificationStore) ListNotifications(_ context.Context, userID string) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.live(s.notifications, userID, s.now())
	if l == nil {
		return []Notification{}, nil
	}
	out := make([]Notification, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, l.entries[i].n)
	}
	return out, nil
}

func (s *MemoryNotificationStore) RemovePending(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(s.pending, userID, notificationID)
	return nil
}

func (s *MemoryNotificationStore) DeleteNotification(_ context.Context, userID, notificationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(s.notifications, userID, notificationID), nil
}

func (s *MemoryNotificationStore) remove(lists map[string]*memoryList, userID, notificationID string) bool {
	l := s.live(lists, userID, s.now())
	if l == nil {
		return false
	}
	before := len(l.entries)
	l.entries = slices.DeleteFunc(l.entries, func(e memoryEntry) bool { return e.n.ID == notificationID })
	return len(l.entries) != before
}

func (s *MemoryNotificationStore) MarkRead(_ context.Context, userID, notificationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	l := s.live(s.notifications, userID, now)
	if l == nil {
		return false, nil
	}
	i := slices.IndexFunc(l.entries, func(e memoryEntry) bool { return e.n.ID == notificationID })
	if i < 0 {
		return false, nil
	}
	e := l.entries[i]
	if e.n.Read {
		return true, nil
	}
	e.n.Read = true
	e.score = now.UnixMilli()
	l.entries = slices.Delete(l.entries, i, i+1)
	l.entries = insertByScore(l.entries, e)
	return true, nil
}

func (s *MemoryNotificationStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryNotificationStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// live returns the user's list, dropping it first if it has expired.
func (s *MemoryNotificationStore) live(lists map[string]*memoryList, userID string, now time.Time) *memoryList {
	l, ok := lists[userID]
	if !ok {
		return nil
	}
	if !now.Before(l.expiresAt) {
		delete(lists, userID)
		return nil
	}
	return l
}

func (s *MemoryNotificationStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for userID := range s.notifications {
				s.live(s.notifications, userID, now)
			}
			for userID := range s.pending {
				s.live(s.pending, userID, now)
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// insertByScore keeps entries ascending by score; equal scores keep insertion order.
func insertByScore(entries []memoryEntry, e memoryEntry) []memoryEntry {
	i, _ := slices.BinarySearchFunc(entries, e.score, func(x memoryEntry, target int64) int {
		if x.score <= target {
			return -1
		}
		return 1
	})
	return slices.Insert(entries, i, e)
}
