package inbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/garrettladley/chirp/internal/migrations"
	"github.com/garrettladley/chirp/internal/storage"
)

const DefaultLimit = 50

// Entry is a notification as received by this client.
type Entry struct {
	Notification storage.Notification
	Acked        bool
	ReceivedAt   time.Time
}

// Inbox caches received notifications in a local SQLite database.
type Inbox struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the inbox at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Inbox, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Inbox{db: db, now: time.Now}, nil
}

func (i *Inbox) Close() error {
	return i.db.Close()
}

// Save records n. Saving an id again refreshes its read flag and keeps the
// original receive time.
func (i *Inbox) Save(ctx context.Context, n storage.Notification) error {
	const q = `
INSERT INTO inbox (id, user_id, message, created_at, read, received_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET read = MAX(inbox.read, excluded.read)`

	_, err := i.db.ExecContext(ctx, q,
		n.ID,
		n.RecipientID,
		n.Message,
		formatTime(n.Timestamp),
		n.Read,
		formatTime(i.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// MarkAcked records that the server was told about id. Acked entries are read.
func (i *Inbox) MarkAcked(ctx context.Context, id string) error {
	if _, err := i.db.ExecContext(ctx, `UPDATE inbox SET acked = 1, read = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark notification acked: %w", err)
	}
	return nil
}

// List returns userID's entries newest first. A non-positive limit means
// DefaultLimit.
func (i *Inbox) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	const q = `
SELECT id, user_id, message, created_at, read, acked, received_at
FROM inbox
WHERE user_id = ?
ORDER BY created_at DESC, received_at DESC
LIMIT ?`

	rows, err := i.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			createdAt, receivedAt string
		)
		if err := rows.Scan(
			&e.Notification.ID,
			&e.Notification.RecipientID,
			&e.Notification.Message,
			&createdAt,
			&e.Notification.Read,
			&e.Acked,
			&receivedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inbox row: %w", err)
		}

		if e.Notification.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if e.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, err
		}
		e.Notification.Type = storage.TypeNotification
		e.Notification.RequiresAck = true
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inbox rows: %w", err)
	}
	return entries, nil
}

// Unread counts userID's unread entries.
func (i *Inbox) Unread(ctx context.Context, userID string) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inbox WHERE user_id = ? AND read = 0`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storage.TimestampLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(storage.TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse inbox timestamp %q: %w", s, err)
	}
	return t, nil
}
