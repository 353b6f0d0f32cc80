package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

const (
	// NotificationTTL is the retention of a user's notification list,
	// refreshed on every append.
	NotificationTTL = 2 * 24 * time.Hour
	// PendingTTL is the retention of a user's pending list,
	// refreshed on every append.
	PendingTTL = 7 * 24 * time.Hour
)

// NotificationStore persists per-user notification and pending lists.
// Every operation is scoped by user id.
type NotificationStore interface {
	// AppendNotification records n in the recipient's notification list.
	// Appending an id that is already present replaces the stored record.
	AppendNotification(ctx context.Context, n Notification) error

	// AppendPending records n in the recipient's pending list.
	AppendPending(ctx context.Context, n Notification) error

	// ListPending returns the pending list oldest first.
	ListPending(ctx context.Context, userID string) ([]Notification, error)

	// ListNotifications returns the notification list newest first.
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)

	// RemovePending drops a pending item. Unknown ids are a no-op.
	RemovePending(ctx context.Context, userID, notificationID string) error

	// MarkRead sets read=true on a notification and re-scores it to now.
	// found is false when the id is unknown. Marking an already read
	// notification is a no-op that reports found.
	MarkRead(ctx context.Context, userID, notificationID string) (found bool, err error)

	// DeleteNotification removes a notification. found is false when the id is unknown.
	DeleteNotification(ctx context.Context, userID, notificationID string) (found bool, err error)

	Ping(ctx context.Context) error

	Close() error
}

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// Clock returns the current time. Stores score entries with it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
