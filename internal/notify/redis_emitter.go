package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"talad/pkg/logger"
	"talad/pkg/model"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "notify:user:"

// RedisEmitter publishes notifications on a per-user pub/sub channel
// that the realtime gateway subscribes to.
type RedisEmitter struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisEmitter(client *redis.Client, log *logger.Logger) *RedisEmitter {
	return &RedisEmitter{client: client, log: log}
}

func (e *RedisEmitter) Emit(ctx context.Context, notification *model.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	channel := userChannelPrefix + notification.UserID
	if err := e.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (e *RedisEmitter) Close() error {
	return e.client.Close()
}
