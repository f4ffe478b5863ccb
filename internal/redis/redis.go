package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// ReadTimeout bounds cache, limiter and idempotency calls on the booking path.
	// Callers fail open on timeout, so it is kept short. Default 500ms.
	ReadTimeout time.Duration
}

// New connects and pings redis. The client is shared by the cache, the rate limiter,
// the idempotency store and the availability pub/sub.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redisx.New"

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   "spacebook",
		DialTimeout:  2 * time.Second,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.ReadTimeout,
	})

	ctxPing, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}
