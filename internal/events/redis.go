package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of *redis.Client used for pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisChannel is the per-user channel a realtime gateway subscribes to.
func RedisChannel(userID fmt.Stringer) string {
	return "notifications:" + userID.String()
}

// Redis publishes each event as JSON on the recipient's channel.
type Redis struct {
	client Publisher
}

func NewRedis(client Publisher) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Emit(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, RedisChannel(e.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}
