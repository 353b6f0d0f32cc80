package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	notificationsKeyPrefix = "notifications:"
	pendingKeyPrefix       = "pending:notifications:"
	indexKeySuffix         = ":index"

	maxTxRetries = 100
)

var _ NotificationStore = (*RedisNotificationStore)(nil)

// RedisNotificationStore keeps each list in a sorted set scored by insertion
// time in milliseconds, plus a hash mapping notification id to its sorted set
// member so updates never scan the set.
type RedisNotificationStore struct {
	client *redis.Client
	now    Clock
}

type RedisOption func(*RedisNotificationStore)

func WithRedisClock(now Clock) RedisOption {
	return func(s *RedisNotificationStore) { s.now = now }
}

func NewRedisNotificationStore(client *redis.Client, opts ...RedisOption) *RedisNotificationStore {
	s := &RedisNotificationStore{
		client: client,
		now:    systemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisList struct {
	key   string
	index string
	ttl   time.Duration
}

func notificationsList(userID string) redisList {
	key := notificationsKeyPrefix + userID
	return redisList{key: key, index: key + indexKeySuffix, ttl: NotificationTTL}
}

func pendingList(userID string) redisList {
	key := pendingKeyPrefix + userID
	return redisList{key: key, index: key + indexKeySuffix, ttl: PendingTTL}
}

func (s *RedisNotificationStore) AppendNotification(ctx context.Context, n Notification) error {
	if err := s.append(ctx, notificationsList(n.RecipientID), n); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (s *RedisNotificationStore) AppendPending(ctx context.Context, n Notification) error {
	if err := s.append(ctx, pendingList(n.RecipientID), n); err != nil {
		return fmt.Errorf("failed to append pending notification: %w", err)
	}
	return nil
}

func (s *RedisNotificationStore) append(ctx context.Context, l redisList, n Notification) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.HGet(ctx, l.index, n.ID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		// read never goes back to false on redelivery
		rec := n
		if prev != "" {
			if old, err := Decode([]byte(prev)); err == nil && old.Read {
				rec.Read = true
			}
		}
		data, err := Encode(rec)
		if err != nil {
			return err
		}
		member := string(data)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev != "" && prev != member {
				pipe.ZRem(ctx, l.key, prev)
			}
			pipe.ZAdd(ctx, l.key, redis.Z{Score: s.score(), Member: member})
			pipe.HSet(ctx, l.index, n.ID, member)
			pipe.Expire(ctx, l.key, l.ttl)
			pipe.Expire(ctx, l.index, l.ttl)
			return nil
		})
		return err
	}, l.index)
}

func (s *RedisNotificationStore) ListPending(ctx context.Context, userID string) ([]Notification, error) {
	results, err := s.client.ZRange(ctx, pendingList(userID).key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return decodeMembers(results), nil
}

func (s *RedisNotificationStore) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	results, err := s.client.ZRevRange(ctx, notificationsList(userID).key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return decodeMembers(results), nil
}

func (s *RedisNotificationStore) RemovePending(ctx context.Context, userID, notificationID string) error {
	if _, err := s.remove(ctx, pendingList(userID), notificationID); err != nil {
		return fmt.Errorf("failed to remove pending notification: %w", err)
	}
	return nil
}

func (s *RedisNotificationStore) DeleteNotification(ctx context.Context, userID, notificationID string) (bool, error) {
	found, err := s.remove(ctx, notificationsList(userID), notificationID)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return found, nil
}

func (s *RedisNotificationStore) remove(ctx context.Context, l redisList, notificationID string) (bool, error) {
	var found bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		found = false
		member, err := tx.HGet(ctx, l.index, notificationID).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, l.key, member)
			pipe.HDel(ctx, l.index, notificationID)
			return nil
		})
		return err
	}, l.index)
	return found, err
}

func (s *RedisNotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	l := notificationsList(userID)

	var found bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		found = false
		member, err := tx.HGet(ctx, l.index, notificationID).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		n, err := Decode([]byte(member))
		if err != nil {
			return err
		}
		if n.Read {
			return nil
		}
		n.Read = true

		data, err := Encode(n)
		if err != nil {
			return err
		}
		updated := string(data)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, l.key, member)
			pipe.ZAdd(ctx, l.key, redis.Z{Score: s.score(), Member: updated})
			pipe.HSet(ctx, l.index, notificationID, updated)
			return nil
		})
		return err
	}, l.index, l.key)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return found, nil
}

func (s *RedisNotificationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisNotificationStore) Close() error {
	return s.client.Close()
}

func (s *RedisNotificationStore) score() float64 {
	return float64(s.now().UnixMilli())
}

// watch runs fn inside WATCH on keys, retrying when a concurrent writer
// invalidates the transaction.
func (s *RedisNotificationStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func decodeMembers(members []string) []Notification {
	notifications := make([]Notification, 0, len(members))
	for _, data := range members {
		n, err := Decode([]byte(data))
		if err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications
}
