package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/garrettladley/chirp/internal/xslog"
)

// RetryPolicy is a bounded exponential backoff for store calls.
type RetryPolicy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts:   3,
	Initial:    100 * time.Millisecond,
	Max:        time.Second,
	Multiplier: 2,
}

func (p RetryPolicy) attempts() int { return max(p.Attempts, 1) }

// newBackOff yields the waits between attempts, without jitter and without
// an elapsed-time cap; the attempt count is the only bound.
func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.Initial),
		backoff.WithMaxInterval(p.Max),
		backoff.WithMultiplier(p.Multiplier),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
}

// retry runs fn until it succeeds, the attempts are exhausted or ctx ends.
func retry[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.attempts()
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(attempts-1)), ctx)

	attempt := 0
	v, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		return fn(ctx)
	}, b, func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "store call failed, retrying",
			xslog.Op(op),
			xslog.Attempt(attempt),
			xslog.Backoff(wait),
			xslog.Error(err),
		)
	})
	switch {
	case err == nil:
		return v, nil
	case ctx.Err() != nil:
		return v, fmt.Errorf("%s: %w", op, context.Cause(ctx))
	default:
		return v, fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
	}
}

func retryErr(ctx context.Context, p RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) error) error {
	_, err := retry(ctx, p, logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
