package queue

import (
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/validator"
)

var ErrInvalidEvent = errors.New("invalid event")

type Kind string

const (
	KindDirect  Kind = "direct"
	KindLike    Kind = "like"
	KindRetweet Kind = "retweet"
	KindFollow  Kind = "follow"
)

// Event asks the dispatcher to notify RecipientID.
type Event struct {
	// ID optionally fixes the notification id so republished events dedupe.
	ID          string     `json:"id,omitempty" validate:"omitempty,max=256"`
	RecipientID string     `json:"recipientId" validate:"required,max=256"`
	Message     string     `json:"message" validate:"required,max=2048"`
	Kind        Kind       `json:"kind,omitempty" validate:"omitempty,oneof=direct like retweet follow"`
	Read        bool       `json:"read,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

func (e Event) Validate() error {
	if verr := validator.Validate(e); verr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, verr.Fields)
	}
	return nil
}

// Options maps the event onto notification construction options.
func (e Event) Options() []storage.Option {
	opts := []storage.Option{storage.WithRead(e.Read)}
	if e.ID != "" {
		opts = append(opts, storage.WithID(e.ID))
	}
	if e.Timestamp != nil {
		opts = append(opts, storage.WithTimestamp(*e.Timestamp))
	}
	return opts
}

func encodeEvent(e Event) (string, error) {
	data, err := go_json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}

func decodeEvent(values map[string]any) (Event, error) {
	raw, ok := values[eventField].(string)
	if !ok {
		return Event{}, fmt.Errorf("%w: missing %q field", ErrInvalidEvent, eventField)
	}
	var e Event
	if err := go_json.Unmarshal([]byte(raw), &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
