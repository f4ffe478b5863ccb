package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemPending = "LOCK"
	idemDone    = "RES:"
)

// IdempotencyStore remembers the booking created for an Idempotency-Key so a retried
// POST /bookings replays it instead of reserving twice. While the first request runs the
// key holds a short-lived lock; afterwards it holds the serialized booking.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for lockTTL. It reports false when another request holds it or
// a result is already stored.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	const op = "rediscache.IdempotencyStore.AcquireLock"

	ok, err := s.rdb.SetNX(ctx, key, idemPending, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// SaveResult replaces the lock with the response body, kept for the store TTL.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, body string) error {
	const op = "rediscache.IdempotencyStore.SaveResult"

	if err := s.rdb.Set(ctx, key, idemDone+body, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetResult returns the stored response body; a pending lock reads as not found.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	const op = "rediscache.IdempotencyStore.GetResult"

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	body, ok := strings.CutPrefix(v, idemDone)

	return body, ok, nil
}

// Release frees the key after a failed request so the client may retry with it.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
