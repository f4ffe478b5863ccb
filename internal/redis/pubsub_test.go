package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityPubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ps := NewAvailabilityPubSub(rdb)

	ctx, cancel := context.WithCancel(t.Context())
	got := make(chan AvailabilityChanged, 4)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(_ context.Context, ev AvailabilityChanged) {
			got <- ev
		})
	}()

	channel := ChannelAvailabilityChanged()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	// junk on the channel is skipped
	mr.Publish(channel, "not json")
	mr.Publish(channel, `{"type":"availability_changed"}`)

	require.NoError(t, ps.PublishAvailabilityChanged(ctx, "studio", time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)))

	select {
	case ev := <-got:
		assert.Equal(t, "availability_changed", ev.Type)
		assert.Equal(t, "studio", ev.SpaceType)
		assert.Equal(t, "2024-06-08", ev.Date)
	case <-time.After(2 * time.Second):
		t.Fatal("no availability message received")
	}
	assert.Empty(t, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
