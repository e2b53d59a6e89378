package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageshelf/internal/models"
)

func TestRedisPublisherAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewRedisPublisher(client, "media:events")
	ctx := context.Background()

	occurred := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	err := p.Publish(ctx, models.ImageEvent{
		Type:        models.EventImageCreated,
		ImageID:     "img1",
		UserID:      "u1",
		BlobKey:     "images/img1",
		ContentType: "image/png",
		OccurredAt:  occurred,
	})
	require.NoError(t, err)
	require.NoError(t, p.Ping(ctx))

	msgs, err := client.XRange(ctx, "media:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "image.created", values["type"])
	assert.Equal(t, "img1", values["image_id"])
	assert.Equal(t, "u1", values["user_id"])
	assert.Equal(t, "images/img1", values["blob_key"])
	assert.Equal(t, "image/png", values["content_type"])
	assert.Equal(t, "2025-03-04T05:06:07Z", values["occurred_at"])
}

func TestRedisPublisherReportsFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	p := NewRedisPublisher(client, "media:events")
	err := p.Publish(context.Background(), models.ImageEvent{Type: models.EventImageDeleted, ImageID: "img1"})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), models.ImageEvent{}))
}
