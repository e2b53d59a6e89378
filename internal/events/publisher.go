package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"imageshelf/internal/models"
)

// RedisPublisher appends image lifecycle events to a Redis stream.
type RedisPublisher struct {
	client redis.Cmdable
	stream string
}

func NewRedisPublisher(client redis.Cmdable, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.ImageEvent) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":         string(event.Type),
			"image_id":     event.ImageID,
			"user_id":      event.UserID,
			"blob_key":     event.BlobKey,
			"content_type": event.ContentType,
			"occurred_at":  event.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Nop drops every event. Used when no Redis is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event models.ImageEvent) error { return nil }
