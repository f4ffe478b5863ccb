package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
	"github.com/redis/go-redis/v9"
)

// Booking attempts of one caller live in a sorted set scored by arrival time (ms).
// A refused attempt is not recorded, so a caller who waits out Retry-After gets in.
//
// KEYS[1] = attempts set
// ARGV    = now_ms, window_ms, limit, member
// returns {allowed, in_window, retry_ms}
const luaBookingWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local n = redis.call('ZCARD', KEYS[1])

if n >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  if retry < 0 then retry = 0 end
  return {0, n, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, n + 1, 0}
`

// SlidingWindowLimiter caps booking attempts per caller within a rolling window.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaBookingWindow),
		now:    time.Now,
	}
}

// Allow records an attempt by id if it fits the window.
//
// Returns:
//   - allowed: whether the attempt may proceed.
//   - current: attempts counted in the window, including this one when allowed.
//   - retryAfter: when the oldest attempt leaves the window; zero when allowed.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	const op = "rediscache.SlidingWindowLimiter.Allow"

	if l.limit <= 0 {
		return true, 0, 0, nil
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyRateLimit(l.scope, id)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("%s: unexpected script reply of %s values", op, strconv.Itoa(len(res)))
	}

	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}
