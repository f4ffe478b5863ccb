package rediscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := t.Context()

	s := NewIdempotencyStore(rdb, time.Hour)
	const key = "spacebook:v1:idem:bookings:7:abc"

	ok, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second request while the first runs")

	_, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found, "a held lock is not a result")

	require.NoError(t, s.SaveResult(ctx, key, `{"booking_number":"AS-240601-7KQ2M"}`))

	body, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"booking_number":"AS-240601-7KQ2M"}`, body)

	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a stored result is never reclaimed")
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(time.Hour)
	_, found, err = s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_ReleaseAndExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := t.Context()

	s := NewIdempotencyStore(rdb, time.Hour)
	const key = "spacebook:v1:idem:bookings:7:retry"

	ok, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, key))

	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released after a failed request")

	// a crashed request's lock runs out on its own
	mr.FastForward(time.Minute)
	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
