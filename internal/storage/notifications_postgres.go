package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listNotification = "notification"
	listPending      = "pending"
)

var _ NotificationStore = (*PostgresNotificationStore)(nil)

// PostgresNotificationStore keeps both lists in one table. A list expires as a
// whole: every append pushes expires_at forward for all of that user's rows in
// the list, and reads ignore rows past expiry.
type PostgresNotificationStore struct {
	pool *pgxpool.Pool
	now  Clock
}

type PostgresOption func(*PostgresNotificationStore)

func WithPostgresClock(now Clock) PostgresOption {
	return func(s *PostgresNotificationStore) { s.now = now }
}

func NewPostgresNotificationStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresNotificationStore {
	s := &PostgresNotificationStore{
		pool: pool,
		now:  systemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	purgeExpiredSQL = `
DELETE FROM notifications
WHERE user_id = $1 AND list = $2 AND expires_at <= $3`

	upsertSQL = `
INSERT INTO notifications (user_id, list, id, payload, read, score, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, list, id) DO UPDATE
SET payload = EXCLUDED.payload, read = notifications.read OR EXCLUDED.read, score = EXCLUDED.score, expires_at = EXCLUDED.expires_at`

	refreshExpirySQL = `
UPDATE notifications SET expires_at = $3
WHERE user_id = $1 AND list = $2`

	listAscSQL = `
SELECT payload, read FROM notifications
WHERE user_id = $1 AND list = $2 AND expires_at > $3
ORDER BY score ASC, id ASC`

	listDescSQL = `
SELECT payload, read FROM notifications
WHERE user_id = $1 AND list = $2 AND expires_at > $3
ORDER BY score DESC, id DESC`

	deleteSQL = `
DELETE FROM notifications
WHERE user_id = $1 AND list = $2 AND id = $3 AND expires_at > $4`

	// markReadSQL reports whether the row exists and flips read in the same
	// statement. The update only touches unread rows, so an already read row
	// keeps its score.
	markReadSQL = `
WITH target AS (
    SELECT 1 FROM notifications
    WHERE user_id = $1 AND list = 'notification' AND id = $2 AND expires_at > $3
), updated AS (
    UPDATE notifications SET read = TRUE, score = $3
    WHERE user_id = $1 AND list = 'notification' AND id = $2 AND expires_at > $3 AND read = FALSE
    RETURNING 1
)
SELECT EXISTS (SELECT 1 FROM target)`
)

func (s *PostgresNotificationStore) AppendNotification(ctx context.Context, n Notification) error {
	if err := s.append(ctx, listNotification, n, NotificationTTL); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) AppendPending(ctx context.Context, n Notification) error {
	if err := s.append(ctx, listPending, n, PendingTTL); err != nil {
		return fmt.Errorf("failed to append pending notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) append(ctx context.Context, list string, n Notification, ttl time.Duration) error {
	data, err := Encode(n)
	if err != nil {
		return err
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, purgeExpiredSQL, n.RecipientID, list, now); err != nil {
			return fmt.Errorf("purge expired: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertSQL, n.RecipientID, list, n.ID, data, n.Read, now, expiresAt); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		if _, err := tx.Exec(ctx, refreshExpirySQL, n.RecipientID, list, expiresAt); err != nil {
			return fmt.Errorf("refresh expiry: %w", err)
		}
		return nil
	})
}

func (s *PostgresNotificationStore) ListPending(ctx context.Context, userID string) ([]Notification, error) {
	notifications, err := s.list(ctx, listAscSQL, userID, listPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return notifications, nil
}

func (s *PostgresNotificationStore) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	notifications, err := s.list(ctx, listDescSQL, userID, listNotification)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *PostgresNotificationStore) list(ctx context.Context, query, userID, list string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, query, userID, list, s.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var (
			payload []byte
			read    bool
		)
		if err := rows.Scan(&payload, &read); err != nil {
			return nil, err
		}
		n, err := Decode(payload)
		if err != nil {
			continue
		}
		n.Read = read
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *PostgresNotificationStore) RemovePending(ctx context.Context, userID, notificationID string) error {
	if _, err := s.pool.Exec(ctx, deleteSQL, userID, listPending, notificationID, s.now()); err != nil {
		return fmt.Errorf("failed to remove pending notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) DeleteNotification(ctx context.Context, userID, notificationID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteSQL, userID, listNotification, notificationID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	var found bool
	if err := s.pool.QueryRow(ctx, markReadSQL, userID, notificationID, s.now()).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return found, nil
}

func (s *PostgresNotificationStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresNotificationStore) Close() error {
	s.pool.Close()
	return nil
}
