package realtime

import (
	"context"
	"encoding/json"

	"github.com/communehq/commune/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the redis pub/sub channel shared by every server.
const DefaultChannel = "commune:realtime"

// RedisBridge is a Feed spanning several server processes. Publish goes
// through redis; Run relays everything on the channel into the local hub,
// which serves this process's subscribers.
type RedisBridge struct {
	hub     *Hub
	client  *redis.Client
	channel string
}

// NewRedisBridge creates a bridge over hub. channel defaults to DefaultChannel.
func NewRedisBridge(hub *Hub, client *redis.Client, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{hub: hub, client: client, channel: channel}
}

// Run relays redis messages to the hub until ctx is done. It returns once
// the subscription is confirmed via ready, or with the subscribe error.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	logger.Log.Info("Realtime redis bridge subscribed", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				logger.WarnWithFields("Dropping malformed realtime message", err)
				continue
			}
			if err := b.hub.Publish(ctx, e); err != nil {
				return nil
			}
		}
	}
}

// Publish sends e to every server through redis.
func (b *RedisBridge) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

// Subscribe delegates to the local hub.
func (b *RedisBridge) Subscribe(ctx context.Context, f Filter) (<-chan Event, CancelFunc) {
	return b.hub.Subscribe(ctx, f)
}
