package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"imageshelf/internal/tasks"
)

// Scheduler enqueues periodic maintenance tasks onto the worker stream.
type Scheduler struct {
	cron     *cron.Cron
	queue    redis.Cmdable
	stream   string
	schedule string
	log      zerolog.Logger
}

func NewScheduler(queue redis.Cmdable, stream, schedule string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		queue:    queue,
		stream:   stream,
		schedule: schedule,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.schedule == "" {
		s.log.Info().Msg("reconcile scheduling disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueReconcile); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("reconcile scheduled")
	return nil
}

// Stop halts the cron loop and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueReconcile() {
	if err := s.enqueueTask(map[string]any{
		"type": tasks.TypeReconcile,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue reconcile failed")
		return
	}
	s.log.Debug().Msg("reconcile enqueued")
}

func (s *Scheduler) enqueueTask(payload map[string]any) error {
	if s.queue == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: payload,
	}).Result()
	return err
}
