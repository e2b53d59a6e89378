package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"imageshelf/internal/cache"
	"imageshelf/internal/config"
	"imageshelf/internal/log"
	"imageshelf/internal/queue"
	"imageshelf/internal/service"
	"imageshelf/internal/stores"
	"imageshelf/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	backends, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open stores")
	}
	defer backends.Close()

	reconciler := service.NewReconciler(
		backends.Blobs,
		backends.Records,
		cfg.Reconcile.GracePeriod,
		cfg.Reconcile.DeleteOrphans,
		logger,
	)
	processor := tasks.NewProcessor(logger, reconciler)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Queues.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
		return
	}
	logger.Info().Msg("worker exited cleanly")
}
