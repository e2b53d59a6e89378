package jobs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueReconcile(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewScheduler(client, "media:events", "0 0 * * * *", zerolog.Nop())
	s.enqueueReconcile()

	msgs, err := client.XRange(context.Background(), "media:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "reconcile", msgs[0].Values["type"])
}

func TestStartRejectsBadSchedule(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewScheduler(client, "media:events", "every now and then", zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestStartWithoutQueueIsNoop(t *testing.T) {
	s := NewScheduler(nil, "media:events", "0 0 * * * *", zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()
}
