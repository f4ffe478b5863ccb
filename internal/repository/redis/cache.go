package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redisx "github.com/kirinyoku/spacebook/internal/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through JSON cache for catalog entries and ledger views.
// Concurrent misses on one key share a single load.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// GetOrSetJSON returns the cached value under key or loads, stores and returns it.
// A failed cache write is logged; the loaded value is still returned.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	const op = "rediscache.GetOrSetJSON"

	var zero T

	if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	shared, err, _ := c.sf.Do(key, func() (any, error) {
		// another caller may have filled the key while we waited
		if v, ok, err := lookup[T](ctx, c, key); err != nil || ok {
			return v, err
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.store(ctx, key, v, ttl); err != nil {
			slog.Warn("cache write failed", "key", key, "err", err)
		}

		return v, nil
	})
	if err != nil {
		return zero, err
	}

	v, ok := shared.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected cached type %T", op, shared)
	}

	return v, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	const op = "rediscache.lookup"

	var out T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		// a payload from an older layout is treated as a miss and overwritten
		return out, false, nil
	}

	return out, true, nil
}

func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// InvalidateAvailability drops the cached ledger view of one (space type, date).
func (c *Cache) InvalidateAvailability(ctx context.Context, spaceType string, date time.Time) error {
	return c.rdb.Del(ctx, redisx.KeyAvailability(spaceType, date)).Err()
}

// InvalidateSpace drops a catalog entry together with the cached list.
func (c *Cache) InvalidateSpace(ctx context.Context, spaceType string) error {
	return c.rdb.Del(ctx, redisx.KeySpace(spaceType), redisx.KeySpaces()).Err()
}
