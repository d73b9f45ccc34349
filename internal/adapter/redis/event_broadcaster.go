package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventBroadcaster pushes lifecycle state changes onto a Redis Pub/Sub
// channel so connected clients see auction updates without polling.
type EventBroadcaster struct {
	client  *redis.Client
	channel string
}

func NewEventBroadcaster(client *redis.Client, channel string) *EventBroadcaster {
	return &EventBroadcaster{
		client:  client,
		channel: channel,
	}
}

func (b *EventBroadcaster) Broadcast(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event to channel '%s': %w", b.channel, err)
	}
	return nil
}
