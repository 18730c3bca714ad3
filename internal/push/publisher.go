package push

import (
	"context"
	"encoding/json"
	"fmt"

	"roster-desk/internal/dto/response"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the redis pub/sub channel shared by all server instances.
const Channel = "roster-desk:events"

// LocalPublisher delivers events to this instance's hub only.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev response.PushEvent) error {
	p.hub.Broadcast(ev)
	return nil
}

// RedisPublisher fans events out through redis so every instance's hub sees
// them, including this one.
type RedisPublisher struct {
	rdb *redis.Client
	hub *Hub
	log *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, hub *Hub, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb: rdb,
		hub: hub,
		log: log.With(zap.String("component", "push_redis")),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev response.PushEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode push event: %w", err)
	}

	if err := p.rdb.Publish(ctx, Channel, b).Err(); err != nil {
		p.log.Error("Failed to publish push event",
			zap.Error(err),
			zap.String("booking_id", ev.BookingID),
			zap.String("type", ev.Type),
		)
		return fmt.Errorf("publish %s for booking %s: %w", ev.Type, ev.BookingID, err)
	}
	return nil
}

// Run relays channel messages into the local hub until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) error {
	sub := p.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	p.log.Info("Relaying push events", zap.String("channel", Channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev response.PushEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.log.Warn("Ignoring malformed push event", zap.Error(err))
				continue
			}
			p.hub.Broadcast(ev)
		}
	}
}
