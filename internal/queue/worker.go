package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	defaultBlock     = 5 * time.Second
	defaultBatchSize = 32
	errorBackoff     = time.Second
)

// Dispatcher is the part of the notification service the worker drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientID, message string, opts ...storage.Option) (storage.Notification, error)
}

type WorkerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block is how long a read waits for new entries. A negative value
	// returns immediately.
	Block     time.Duration
	BatchSize int64
}

// Worker consumes the event stream through a consumer group and dispatches
// each event. Entries are acked whether or not the dispatch succeeded.
type Worker struct {
	client     *redis.Client
	dispatcher Dispatcher
	cfg        WorkerConfig
	logger     *slog.Logger
}

func NewWorker(client *redis.Client, dispatcher Dispatcher, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Block == 0 {
		cfg.Block = defaultBlock
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Worker{
		client:     client,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With(xslog.QueueGroup(cfg.Stream, cfg.Group, cfg.Consumer)),
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Run processes entries left unacked by a previous run of this consumer, then
// new entries until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "queue worker started")

	if _, err := w.poll(ctx, "0"); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "failed to recover unacked entries", xslog.Error(err))
	}

	for {
		if ctx.Err() != nil {
			w.logger.InfoContext(context.WithoutCancel(ctx), "queue worker stopped")
			return nil
		}

		if _, err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.ErrorContext(ctx, "queue read failed", xslog.Error(err), xslog.Backoff(errorBackoff))

			timer := time.NewTimer(errorBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// Poll reads and handles one batch of new entries.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	return w.poll(ctx, ">")
}

func (w *Worker) poll(ctx context.Context, start string) (int, error) {
	streams, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Stream, start},
		Count:    w.cfg.BatchSize,
		Block:    w.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read group: %w", err)
	}

	handled := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			w.handle(ctx, msg)
			handled++
		}
	}
	return handled, nil
}

func (w *Worker) handle(ctx context.Context, msg redis.XMessage) {
	logger := w.logger.With(xslog.StreamID(msg.ID))

	e, err := decodeEvent(msg.Values)
	if err != nil {
		logger.WarnContext(ctx, "dropping invalid event", xslog.Error(err))
	} else {
		n, err := w.dispatcher.Dispatch(ctx, e.RecipientID, e.Message, e.Options()...)
		if err != nil {
			logger.ErrorContext(ctx, "dispatch failed",
				xslog.NotificationGroup(n.ID, e.RecipientID),
				xslog.Error(err),
			)
		}
	}

	ackCtx := context.WithoutCancel(ctx)
	if err := w.client.XAck(ackCtx, w.cfg.Stream, w.cfg.Group, msg.ID).Err(); err != nil {
		logger.WarnContext(ctx, "failed to ack stream entry", xslog.Error(err))
	}
}
