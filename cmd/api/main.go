package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/challengehub/challengehub/internal/config"
	"github.com/challengehub/challengehub/internal/handlers"
	"github.com/challengehub/challengehub/internal/middleware"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/internal/workers"
	"github.com/challengehub/challengehub/pkg/cache"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/media"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger()
	logger.Info("Starting ChallengeHub API server...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

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

	engagementProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EngagementEvents)
	defer engagementProducer.Close()

	engagementConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EngagementEvents, "engagement-worker-group")
	defer engagementConsumer.Close()

	userRepo := repository.NewUserRepository(db.DB)
	videoRepo := repository.NewVideoRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)
	challengeRepo := repository.NewChallengeRepository(db.DB)

	hub := subscriptions.NewHub(logger)
	defer hub.Close()

	views := subscriptions.NewViews(hub, userRepo, videoRepo, commentRepo, followRepo, logger)

	uploader := media.NewHostClient(cfg.Media.UploadURL, cfg.Media.UploadPreset, cfg.Media.UploadTimeout)

	userService := services.NewUserService(userRepo, engagementProducer, hub, logger)
	challengeService := services.NewChallengeService(challengeRepo, redisClient, engagementProducer, hub, cfg.Challenge.Rotation, logger)
	videoService := services.NewVideoService(videoRepo, userRepo, userService, challengeService, uploader, &cfg.Media, engagementProducer, hub, logger)
	commentService := services.NewCommentService(commentRepo, videoRepo, userRepo, redisClient, engagementProducer, hub, logger)
	engagementService := services.NewEngagementService(db, videoRepo, likeRepo, userRepo, followRepo, commentRepo, engagementProducer, hub, logger)
	rewardsService := services.NewRewardsService(userRepo, engagementProducer, hub, logger)

	engagementWorker := workers.NewEngagementWorker(engagementConsumer, userRepo, redisClient, hub, logger)
	go func() {
		if err := engagementWorker.Start(ctx); err != nil {
			logger.WithError(err).Error("Engagement worker stopped with error")
		}
	}()

	userHandler := handlers.NewUserHandler(userService, engagementService, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	feedHandler := handlers.NewFeedHandler(views, challengeService, redisClient, logger)
	videoHandler := handlers.NewVideoHandler(videoService, commentService, engagementService)
	storeHandler := handlers.NewStoreHandler(rewardsService)
	wsHandler := handlers.NewWSHandler(views, logger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	jwtConfig := &middleware.JWTConfig{Secret: cfg.JWT.Secret}

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.GET("/:id", userHandler.GetProfile)
			users.GET("/:id/videos", feedHandler.GetUserVideos)
			users.GET("/:id/followers", userHandler.GetFollowers)
			users.GET("/:id/following", userHandler.GetFollowing)
		}

		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(jwtConfig))
		{
			protected.GET("/users/search", userHandler.SearchUsers)
			protected.POST("/users/:id/follow", userHandler.ToggleFollow)
			protected.GET("/users/:id/follow", userHandler.FollowStatus)

			protected.GET("/feed", feedHandler.GetFeed)
			protected.GET("/leaderboard", feedHandler.GetLeaderboard)
			protected.GET("/challenge", feedHandler.GetChallenge)

			protected.POST("/videos", videoHandler.SubmitVideo)
			protected.GET("/videos/:id", videoHandler.GetVideo)
			protected.DELETE("/videos/:id", videoHandler.DeleteVideo)
			protected.POST("/videos/:id/like", videoHandler.ToggleLike)
			protected.GET("/videos/:id/like", videoHandler.LikeStatus)
			protected.POST("/videos/:id/comments", videoHandler.PostComment)
			protected.GET("/videos/:id/comments", videoHandler.GetComments)
			protected.POST("/comments/:id/like", videoHandler.LikeComment)

			protected.GET("/store/badges", storeHandler.GetCatalog)
			protected.POST("/store/purchase", storeHandler.Purchase)
		}
	}

	ws := router.Group("/ws")
	ws.Use(middleware.NewJWTAuth(jwtConfig))
	{
		ws.GET("/feed", wsHandler.StreamFeed)
		ws.GET("/leaderboard", wsHandler.StreamLeaderboard)
		ws.GET("/videos/:id/comments", wsHandler.StreamComments)
		ws.GET("/users/:id/videos", wsHandler.StreamUserVideos)
		ws.GET("/users/:id/profile", wsHandler.StreamProfile)
		ws.GET("/users/:id/follow-status", wsHandler.StreamFollowStatus)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if err := engagementWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop engagement worker")
	}

	logger.Info("Server exited")
}

func init() {
	dirs := []string{"logs", "configs"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Failed to create directory %s: %v", dir, err)
		}
	}

	configPath := "configs/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":8080"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s

database:
  host: "localhost"
  port: 5432
  user: "hubuser"
  password: "hubpass"
  dbname: "challengehub"
  sslmode: "disable"
  max_open_conns: 100
  max_idle_conns: 10

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 100
  min_idle_conns: 10

kafka:
  brokers:
    - "localhost:9092"
  topics:
    engagement_events: "engagement-events"

jwt:
  secret: "your-secret-key-change-in-production"
  expire_time: 24h

media:
  upload_url: "https://api.cloudinary.com/v1_1/demo/video/upload"
  upload_preset: "challengehub_unsigned"
  upload_timeout: 2m
  max_size_bytes: 52428800  # 50MB
  max_duration: 31s

challenge:
  rotation: 24h`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
