package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garrettladley/chirp/internal/registry"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	pathLive    = "live"
	pathPending = "pending"
	pathReplay  = "replay"
)

var _ Service = (*Dispatcher)(nil)

// Dispatcher routes notifications to live connections or the pending list and
// owns the table of deliveries awaiting acknowledgement.
type Dispatcher struct {
	store    storage.NotificationStore
	registry *registry.Registry
	acks     *AckTracker
	retry    RetryPolicy
	logger   *slog.Logger
}

type Option func(*Dispatcher)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) { d.retry = p }
}

func NewDispatcher(store storage.NotificationStore, reg *registry.Registry, acks *AckTracker, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		registry: reg,
		acks:     acks,
		retry:    DefaultRetryPolicy,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, recipientID, message string, opts ...storage.Option) (storage.Notification, error) {
	n := storage.NewNotification(recipientID, message, opts...)
	logger := d.logger.With(xslog.NotificationGroup(n.ID, recipientID))

	if conn, ok := d.registry.Lookup(recipientID); ok {
		recordErr, sendErr := d.deliver(ctx, logger, conn, n)
		if sendErr == nil {
			logger.DebugContext(ctx, "notification delivered", xslog.Path(pathLive), xslog.ConnID(conn.ID()))
			return n, recordErr
		}
		logger.WarnContext(ctx, "live delivery failed, queueing as pending",
			xslog.ConnID(conn.ID()),
			xslog.Error(sendErr),
		)
	}

	err := retryErr(ctx, d.retry, logger, "append pending", func(ctx context.Context) error {
		return d.store.AppendPending(ctx, n)
	})
	if err != nil {
		logger.ErrorContext(ctx, "dropping notification, pending write failed", xslog.Error(err))
		return n, err
	}
	logger.DebugContext(ctx, "notification queued", xslog.Path(pathPending))
	return n, nil
}

// deliver records n in the notification list, then transmits it with an
// awaiting-ack entry in place. A failed record write is reported but does
// not stop transmission. A failed transmission evicts conn.
func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, conn registry.Conn, n storage.Notification) (recordErr, sendErr error) {
	recordErr = retryErr(ctx, d.retry, logger, "append notification", func(ctx context.Context) error {
		return d.store.AppendNotification(ctx, n)
	})
	if recordErr != nil {
		logger.ErrorContext(ctx, "failed to record notification", xslog.Error(recordErr))
	}

	data, err := storage.Encode(n)
	if err != nil {
		return recordErr, err
	}

	d.acks.Track(n.RecipientID, n)
	if err := conn.Send(ctx, data); err != nil {
		d.acks.Untrack(n.ID, n.RecipientID)
		d.evict(ctx, conn)
		return recordErr, fmt.Errorf("failed to send notification: %w", err)
	}
	return recordErr, nil
}

func (d *Dispatcher) evict(ctx context.Context, conn registry.Conn) {
	if d.registry.Unregister(conn) {
		d.logger.InfoContext(ctx, "evicted connection after transport error", xslog.ConnID(conn.ID()))
	}
	_ = conn.Close()
}

func (d *Dispatcher) HandleAck(ctx context.Context, notificationID, userID string) error {
	logger := d.logger.With(xslog.UserID(userID), xslog.NotificationID(notificationID))

	p, ok := d.acks.Take(notificationID, userID)
	if !ok {
		logger.DebugContext(ctx, "ignoring unknown acknowledgement")
		return nil
	}

	found, err := retry(ctx, d.retry, logger, "mark read", func(ctx context.Context) (bool, error) {
		return d.store.MarkRead(ctx, userID, notificationID)
	})
	if err != nil {
		d.acks.Restore(p)
		logger.ErrorContext(ctx, "failed to mark acknowledged notification read", xslog.Error(err))
		return err
	}
	if !found {
		logger.WarnContext(ctx, "acknowledged notification missing from store")
	}
	return nil
}

func (d *Dispatcher) HandleMarkRead(ctx context.Context, notificationID, userID string) (bool, error) {
	logger := d.logger.With(xslog.UserID(userID), xslog.NotificationID(notificationID))

	found, err := retry(ctx, d.retry, logger, "mark read", func(ctx context.Context) (bool, error) {
		return d.store.MarkRead(ctx, userID, notificationID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to mark notification read", xslog.Error(err))
		return false, err
	}
	return found, nil
}

// Replay delivers the pending list in order. An item leaves the pending list
// only once it is recorded and transmitted; a transmission failure stops the
// replay and leaves the remaining items pending.
func (d *Dispatcher) Replay(ctx context.Context, userID string, conn registry.Conn) (int, error) {
	logger := d.logger.With(xslog.UserID(userID), xslog.ConnID(conn.ID()))

	pending, err := retry(ctx, d.retry, logger, "list pending", func(ctx context.Context) ([]storage.Notification, error) {
		return d.store.ListPending(ctx, userID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to load pending notifications", xslog.Error(err))
		return 0, err
	}

	var (
		delivered  int
		recordErrs []error
	)
	for _, n := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		nlogger := logger.With(xslog.NotificationID(n.ID))
		recordErr, sendErr := d.deliver(ctx, nlogger, conn, n)
		if sendErr != nil {
			nlogger.WarnContext(ctx, "replay interrupted", xslog.Error(sendErr))
			return delivered, sendErr
		}
		delivered++

		if recordErr != nil {
			recordErrs = append(recordErrs, recordErr)
			continue
		}

		err := retryErr(ctx, d.retry, nlogger, "remove pending", func(ctx context.Context) error {
			return d.store.RemovePending(ctx, userID, n.ID)
		})
		if err != nil {
			nlogger.ErrorContext(ctx, "failed to remove replayed notification", xslog.Error(err))
			recordErrs = append(recordErrs, err)
		}
	}

	if delivered > 0 {
		logger.InfoContext(ctx, "replayed pending notifications", xslog.Count(delivered), xslog.Path(pathReplay))
	}
	return delivered, errors.Join(recordErrs...)
}

func (d *Dispatcher) ListNotifications(ctx context.Context, userID string) (*ListResult, error) {
	logger := d.logger.With(xslog.UserID(userID))

	notifications, err := retry(ctx, d.retry, logger, "list notifications", func(ctx context.Context) ([]storage.Notification, error) {
		return d.store.ListNotifications(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []storage.Notification{}
	}

	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return &ListResult{Notifications: notifications, Unread: unread}, nil
}

func (d *Dispatcher) ListPending(ctx context.Context, userID string) ([]storage.Notification, error) {
	logger := d.logger.With(xslog.UserID(userID))

	pending, err := retry(ctx, d.retry, logger, "list pending", func(ctx context.Context) ([]storage.Notification, error) {
		return d.store.ListPending(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []storage.Notification{}
	}
	return pending, nil
}

func (d *Dispatcher) DeleteNotification(ctx context.Context, userID, notificationID string) (bool, error) {
	logger := d.logger.With(xslog.UserID(userID), xslog.NotificationID(notificationID))

	found, err := retry(ctx, d.retry, logger, "delete notification", func(ctx context.Context) (bool, error) {
		return d.store.DeleteNotification(ctx, userID, notificationID)
	})
	if err != nil {
		return false, err
	}
	d.acks.Untrack(notificationID, userID)
	return found, nil
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Connections:  d.registry.Len(),
		AwaitingAcks: d.acks.Len(),
	}
}
