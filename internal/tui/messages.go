package tui

import "github.com/garrettladley/chirp/internal/storage"

type NotificationMsg struct {
	Notification storage.Notification
}

// DisconnectedMsg ends the stream. Err is nil when the listener was stopped.
type DisconnectedMsg struct {
	Err error
}
