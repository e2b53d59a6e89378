package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"imageshelf/internal/cache"
	"imageshelf/internal/config"
	"imageshelf/internal/events"
	"imageshelf/internal/handlers"
	"imageshelf/internal/jobs"
	"imageshelf/internal/log"
	"imageshelf/internal/server"
	"imageshelf/internal/service"
	"imageshelf/internal/stores"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	backends, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open stores")
	}
	if cfg.Storage.AutoProvision {
		backends.Provision(ctx, logger)
	}

	deps := handlers.Dependencies{
		Metadata: backends.Records,
		Blobs:    backends.Blobs,
	}

	var publisher service.EventPublisher = events.Nop{}
	var queue redis.Cmdable
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrRedisDisabled):
		logger.Info().Msg("redis not configured, lifecycle events disabled")
	case err != nil:
		logger.Warn().Err(err).Msg("redis unavailable, lifecycle events disabled")
	default:
		redisPublisher := events.NewRedisPublisher(redisClient, cfg.Redis.Stream)
		publisher = redisPublisher
		deps.Events = redisPublisher
		queue = redisClient
	}

	images := service.NewImageService(backends.Blobs, backends.Records, publisher, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, images, deps)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(queue, cfg.Redis.Stream, cfg.Reconcile.Schedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, backends, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, backends *stores.Stores, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()
	backends.Close()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
