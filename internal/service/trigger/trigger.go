package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garrettladley/chirp/internal/queue"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	likedFormat     = "%s a liké votre tweet!"
	retweetedFormat = "%s a retweeté votre tweet!"
	followedFormat  = "%s vous suit maintenant!"
)

// Trigger turns social actions into queued notification events. Failures are
// logged and never surfaced to the action that caused them.
type Trigger struct {
	publisher queue.Publisher
	logger    *slog.Logger
}

func New(publisher queue.Publisher, logger *slog.Logger) *Trigger {
	return &Trigger{publisher: publisher, logger: logger}
}

// Liked notifies authorID that actor liked one of their tweets.
func (t *Trigger) Liked(ctx context.Context, actor, authorID string) {
	if actor == authorID {
		return
	}
	t.publish(ctx, queue.KindLike, authorID, fmt.Sprintf(likedFormat, actor))
}

// Retweeted notifies authorID that actor retweeted one of their tweets.
func (t *Trigger) Retweeted(ctx context.Context, actor, authorID string) {
	if actor == authorID {
		return
	}
	t.publish(ctx, queue.KindRetweet, authorID, fmt.Sprintf(retweetedFormat, actor))
}

// Followed notifies targetID that actor started following them.
func (t *Trigger) Followed(ctx context.Context, actor, targetID string) {
	t.publish(ctx, queue.KindFollow, targetID, fmt.Sprintf(followedFormat, actor))
}

func (t *Trigger) publish(ctx context.Context, kind queue.Kind, recipientID, message string) {
	id, err := t.publisher.Publish(ctx, queue.Event{
		RecipientID: recipientID,
		Message:     message,
		Kind:        kind,
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to publish notification event",
			slog.String("kind", string(kind)),
			xslog.UserID(recipientID),
			xslog.Error(err),
		)
		return
	}
	t.logger.DebugContext(ctx, "notification event published",
		slog.String("kind", string(kind)),
		xslog.UserID(recipientID),
		xslog.StreamID(id),
	)
}
