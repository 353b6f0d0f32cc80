package notification

import (
	"context"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/storage"
)

type ListResult struct {
	Notifications []storage.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
}

type Stats struct {
	Connections  int `json:"connections"`
	AwaitingAcks int `json:"awaitingAcks"`
}

type Service interface {
	// Dispatch builds a notification for recipientID and delivers it live
	// or queues it as pending. The notification is returned on every path;
	// a non-nil error only reports a failed durable write.
	Dispatch(ctx context.Context, recipientID, message string, opts ...storage.Option) (storage.Notification, error)

	// HandleAck settles an awaiting acknowledgement owned by userID and marks
	// the notification read. Unknown, late and duplicate acks are no-ops.
	HandleAck(ctx context.Context, notificationID, userID string) error

	// HandleMarkRead marks a notification read. found is false for unknown ids.
	HandleMarkRead(ctx context.Context, notificationID, userID string) (found bool, err error)

	// Replay transmits userID's pending notifications oldest first over conn
	// and returns how many were delivered.
	Replay(ctx context.Context, userID string, conn registry.Conn) (int, error)

	ListNotifications(ctx context.Context, userID string) (*ListResult, error)

	ListPending(ctx context.Context, userID string) ([]storage.Notification, error)

	DeleteNotification(ctx context.Context, userID, notificationID string) (found bool, err error)

	Stats() Stats
}
