package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "notifications:queue"
	DefaultGroup  = "dispatchers"

	eventField = "event"

	// maxStreamLen trims the stream approximately; acked entries are never re-read.
	maxStreamLen = 100_000
)

type Publisher interface {
	// Publish enqueues e and returns its stream entry id.
	Publish(ctx context.Context, e Event) (string, error)
}

var _ Publisher = (*RedisPublisher)(nil)

type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	data, err := encodeEvent(e)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{eventField: data},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}
	return id, nil
}
