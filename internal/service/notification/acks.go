package notification

import (
	"sync"
	"time"

	"github.com/garrettladley/chirp/internal/storage"
)

// PendingAck is a transmitted notification awaiting the client's ack.
type PendingAck struct {
	UserID       string
	Notification storage.Notification
	SentAt       time.Time
}

// AckTracker holds awaiting acknowledgements keyed by notification id.
// Entries only leave the table through an ack or a failed transmission.
type AckTracker struct {
	mu      sync.Mutex
	entries map[string]PendingAck
	now     func() time.Time
}

func NewAckTracker() *AckTracker {
	return &AckTracker{
		entries: make(map[string]PendingAck),
		now:     time.Now,
	}
}

// Track records n as sent to userID, replacing any earlier entry for the id.
func (t *AckTracker) Track(userID string, n storage.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[n.ID] = PendingAck{UserID: userID, Notification: n, SentAt: t.now()}
}

// Take removes and returns the entry for notificationID when it belongs to userID.
func (t *AckTracker) Take(notificationID, userID string) (PendingAck, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[notificationID]
	if !ok || p.UserID != userID {
		return PendingAck{}, false
	}
	delete(t.entries, notificationID)
	return p, true
}

// Restore puts back an entry removed by Take unless a newer one exists.
func (t *AckTracker) Restore(p PendingAck) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[p.Notification.ID]; !ok {
		t.entries[p.Notification.ID] = p
	}
}

// Untrack drops the entry for notificationID if it was sent to userID.
func (t *AckTracker) Untrack(notificationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.entries[notificationID]; ok && p.UserID == userID {
		delete(t.entries, notificationID)
	}
}

func (t *AckTracker) Get(notificationID string) (PendingAck, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[notificationID]
	return p, ok
}

func (t *AckTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
