// Package redis implements the broadcast channel on Redis pub/sub.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config controls the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Broadcaster publishes payloads to Redis channels and reports subscriber
// counts via PUBSUB NUMSUB.
type Broadcaster struct {
	rdb *redis.Client
}

// New creates a Broadcaster and verifies the connection with a PING.
func New(cfg Config) (*Broadcaster, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Broadcaster{rdb: rdb}, nil
}

// Publish sends payload to the channel.
func (b *Broadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// SubscriberCount returns the number of active subscribers on the channel.
func (b *Broadcaster) SubscriberCount(ctx context.Context, channel string) (int64, error) {
	counts, err := b.rdb.PubSubNumSub(ctx, channel).Result()
	if err != nil {
		return 0, fmt.Errorf("pubsub numsub %s: %w", channel, err)
	}
	return counts[channel], nil
}

// Close closes the underlying Redis connection.
func (b *Broadcaster) Close() error {
	return b.rdb.Close()
}
