package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used for publishing.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// IntakeEvent is the pub/sub envelope for leads, bookings and SMS activity.
type IntakeEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// RedisPublisher publishes intake events on a fixed channel.
type RedisPublisher struct {
	client  RedisClient
	channel string
}

// NewRedisPublisher returns a publisher; a nil client disables it.
func NewRedisPublisher(client RedisClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// PublishEvent marshals ev and publishes it.
func (p *RedisPublisher) PublishEvent(ctx context.Context, ev IntakeEvent) error {
	if p == nil || p.client == nil {
		return ErrSkipped
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", ev.Type, err)
	}
	return p.client.Publish(ctx, p.channel, b).Err()
}
