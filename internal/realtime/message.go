package realtime

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/chirp/internal/validator"
)

type MessageType string

const (
	MessageRegister        MessageType = "register"
	MessageNotificationAck MessageType = "notification_ack"
	MessageMarkAsRead      MessageType = "mark_as_read"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// ControlMessage is an inbound client message.
type ControlMessage struct {
	Type           MessageType `json:"type" validate:"required"`
	UserID         string      `json:"userId" validate:"required,max=256"`
	NotificationID string      `json:"notificationId" validate:"max=256"`
}

func (m ControlMessage) Validate() map[string]string {
	if m.Type != MessageRegister && m.NotificationID == "" {
		return map[string]string{"notificationId": "required"}
	}
	return nil
}

// ParseControlMessage decodes and validates one inbound frame.
func ParseControlMessage(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := go_json.Unmarshal(data, &m); err != nil {
		return ControlMessage{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch m.Type {
	case MessageRegister, MessageNotificationAck, MessageMarkAsRead:
	case "":
		return ControlMessage{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return ControlMessage{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}

	if verr := validator.Validate(m); verr != nil {
		return ControlMessage{}, fmt.Errorf("%w: %s", ErrMalformedMessage, describeFields(verr.Fields))
	}
	return m, nil
}

func describeFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, k+" "+fields[k])
	}
	return strings.Join(parts, ", ")
}
