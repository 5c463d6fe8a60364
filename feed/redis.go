// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/pilrt/store"
)

// RedisChannel is the pub/sub channel shared by all instances.
const RedisChannel = "pilrt:changes"

type relayEnvelope struct {
	Origin string       `json:"origin"`
	Change store.Change `json:"change"`
}

// RedisRelay mirrors a Broker across server instances through redis
// pub/sub. Local changes are published with this instance's origin id;
// remote changes are injected into the local broker.
type RedisRelay struct {
	client *redis.Client
	broker *Broker
	origin string
}

func NewRedisRelay(redisURL string, broker *Broker) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	r := &RedisRelay{
		client: client,
		broker: broker,
		origin: uuid.NewString(),
	}
	broker.OnPublish(r.forward)
	return r, nil
}

func (r *RedisRelay) forward(c store.Change) {
	payload, err := json.Marshal(relayEnvelope{Origin: r.origin, Change: c})
	if err != nil {
		return
	}
	// Publishing happens under the broker's read lock, so keep it off the
	// caller's path.
	go func() {
		if err := r.client.Publish(context.Background(), RedisChannel, payload).Err(); err != nil {
			slog.Warn("redis relay publish failed", "table", c.Table, "error", err)
		}
	}()
}

// Run consumes remote changes until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("ignoring malformed relay message", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.broker.Inject(env.Change)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
