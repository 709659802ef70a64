package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PubSub is the subset of *redis.Client used by the Bridge.
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type envelope struct {
	Origin string     `json:"origin"`
	Update SlotUpdate `json:"update"`
}

// Bridge broadcasts slot updates locally and, when Redis is configured,
// relays them to other instances.
type Bridge struct {
	hub     *Hub
	rdb     PubSub
	channel string
	origin  string
}

// NewBridge returns a Bridge. A nil rdb keeps updates process-local.
func NewBridge(hub *Hub, rdb PubSub, channel string) *Bridge {
	return &Bridge{hub: hub, rdb: rdb, channel: channel, origin: uuid.NewString()}
}

// PublishSlot delivers u to local subscribers and publishes it for peers.
func (b *Bridge) PublishSlot(ctx context.Context, u SlotUpdate) error {
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}
	b.hub.Broadcast(u)
	if b.rdb == nil {
		return nil
	}
	msg, err := json.Marshal(envelope{Origin: b.origin, Update: u})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, msg).Err()
}

// Run relays peer updates into the local hub until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *Bridge) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Warn().Err(err).Str("channel", b.channel).Msg("bad slot update payload")
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Broadcast(env.Update)
}
