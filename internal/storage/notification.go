package storage

import (
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TypeNotification is the only outbound message type.
const TypeNotification = "notification"

// TimestampLayout is RFC 3339 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Notification struct {
	ID          string
	Type        string
	Message     string
	RecipientID string
	Timestamp   time.Time
	RequiresAck bool
	Read        bool
}

type notificationJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	RecipientID string `json:"recipientId"`
	Timestamp   string `json:"timestamp"`
	RequiresAck bool   `json:"requiresAck"`
	Read        bool   `json:"read"`
}

type Option func(*Notification)

// WithRead pre-marks the notification as read.
func WithRead(read bool) Option {
	return func(n *Notification) { n.Read = read }
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) Option {
	return func(n *Notification) {
		if !ts.IsZero() {
			n.Timestamp = ts
		}
	}
}

// WithID overrides the generated id.
func WithID(id string) Option {
	return func(n *Notification) {
		if id != "" {
			n.ID = id
		}
	}
}

// NewNotification builds a notification with a fresh UUID v4 id and the
// current time truncated to milliseconds.
func NewNotification(recipientID, message string, opts ...Option) Notification {
	n := Notification{
		ID:          uuid.NewString(),
		Type:        TypeNotification,
		Message:     message,
		RecipientID: recipientID,
		Timestamp:   time.Now(),
		RequiresAck: true,
	}
	for _, opt := range opts {
		opt(&n)
	}
	n.Timestamp = n.Timestamp.UTC().Truncate(time.Millisecond)
	return n
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return go_json.Marshal(notificationJSON{
		ID:          n.ID,
		Type:        n.Type,
		Message:     n.Message,
		RecipientID: n.RecipientID,
		Timestamp:   n.Timestamp.UTC().Format(TimestampLayout),
		RequiresAck: n.RequiresAck,
		Read:        n.Read,
	})
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw notificationJSON
	if err := go_json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw.Timestamp, err)
	}
	*n = Notification{
		ID:          raw.ID,
		Type:        raw.Type,
		Message:     raw.Message,
		RecipientID: raw.RecipientID,
		Timestamp:   ts.UTC(),
		RequiresAck: raw.RequiresAck,
		Read:        raw.Read,
	}
	return nil
}

// Encode serializes n for the wire and for storage.
func Encode(n Notification) ([]byte, error) {
	data, err := go_json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := go_json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return n, nil
}
