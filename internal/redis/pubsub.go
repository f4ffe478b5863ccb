package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityChanged is published after every committed ledger mutation.
type AvailabilityChanged struct {
	Type      string `json:"type"`
	SpaceType string `json:"space_type"`
	Date      string `json:"date"`
	TsUnix    int64  `json:"ts_unix"`
}

type AvailabilityPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewAvailabilityPubSub(rdb *redis.Client) *AvailabilityPubSub {
	return &AvailabilityPubSub{
		rdb:     rdb,
		channel: ChannelAvailabilityChanged(),
	}
}

func (p *AvailabilityPubSub) PublishAvailabilityChanged(ctx context.Context, spaceType string, date time.Time) error {
	msg := AvailabilityChanged{
		Type:      "availability_changed",
		SpaceType: spaceType,
		Date:      date.Format("2006-01-02"),
		TsUnix:    time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every well-formed message until ctx is done.
func (p *AvailabilityPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg AvailabilityChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev AvailabilityChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.SpaceType != "" && ev.Date != "" {
				handler(ctx, ev)
			}
		}
	}
}
