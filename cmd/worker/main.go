package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/challengehub/challengehub/internal/config"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/internal/workers"
	"github.com/challengehub/challengehub/pkg/cache"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
)

// The standalone worker maintains the Redis leaderboard mirror from the
// engagement event stream. It holds no WebSocket sessions, so its hub has
// no subscribers; notifications are no-ops here.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger()
	logger.Info("Starting ChallengeHub Worker...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	engagementConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EngagementEvents, "engagement-worker-group")
	defer engagementConsumer.Close()

	userRepo := repository.NewUserRepository(db.DB)

	hub := subscriptions.NewHub(logger)
	defer hub.Close()

	engagementWorker := workers.NewEngagementWorker(engagementConsumer, userRepo, redisClient, hub, logger)

	logger.Info("Starting engagement worker...")
	go func() {
		if err := engagementWorker.Start(ctx); err != nil {
			logger.WithError(err).Error("Engagement worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")

	_, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := engagementWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop engagement worker")
	}

	logger.Info("Worker exited")
}
