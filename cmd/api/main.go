package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/snapfeed/snapfeed/internal/handlers"
	"github.com/snapfeed/snapfeed/internal/middleware"
	"github.com/snapfeed/snapfeed/internal/repository"
	"github.com/snapfeed/snapfeed/internal/services"
	"github.com/snapfeed/snapfeed/pkg/cache"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger()
	logger.Info("Starting SnapFeed API server...")

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

	producer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents)
	defer producer.Close()

	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	postRepo := repository.NewPostRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	views := services.NewPostViewService(likeRepo, commentRepo)
	userService := services.NewUserService(userRepo, followRepo, postRepo, views, producer, logger)
	feedService := services.NewFeedService(postRepo, followRepo, userRepo, commentRepo, views, producer, logger, cfg.Feed)
	likeService := services.NewLikeService(postRepo, likeRepo, producer, logger)
	commentService := services.NewCommentService(postRepo, commentRepo, userRepo, producer, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)

	jwtConfig := &middleware.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpireTime: cfg.JWT.ExpireTime,
	}

	authHandler := handlers.NewAuthHandler(userService, jwtConfig)
	userHandler := handlers.NewUserHandler(userService)
	feedHandler := handlers.NewFeedHandler(feedService, likeService, commentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	// Optional auth runs before the rate limiter so authenticated traffic is
	// limited per user rather than per IP.
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequestID(),
		middleware.NewOptionalJWTAuth(jwtConfig),
		middleware.NewRateLimit(redisClient, cfg.RateLimit, logger),
	)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/users/:username", userHandler.GetProfile)
		api.GET("/users/:username/followers", userHandler.GetFollowers)
		api.GET("/users/:username/following", userHandler.GetFollowing)
		api.GET("/posts/:id", feedHandler.GetPost)
		api.GET("/posts/user/:id", feedHandler.GetUserPosts)
		api.GET("/posts/:id/comments", feedHandler.GetPostComments)

		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(jwtConfig))
		{
			protected.PATCH("/users/me", userHandler.UpdateProfilePic)
			protected.POST("/users/follow/:id", userHandler.Follow)
			protected.DELETE("/users/unfollow/:id", userHandler.Unfollow)

			protected.POST("/posts", feedHandler.CreatePost)
			protected.DELETE("/posts/:id", feedHandler.DeletePost)
			protected.POST("/posts/:id/like", feedHandler.LikePost)
			protected.DELETE("/posts/:id/like", feedHandler.UnlikePost)
			protected.POST("/posts/:id/comments", feedHandler.CreateComment)
			protected.DELETE("/comments/:id", feedHandler.DeleteComment)

			protected.GET("/feed", feedHandler.GetFeed)

			protected.GET("/notifications", notificationHandler.List)
			protected.POST("/notifications/read", notificationHandler.MarkAllRead)
		}
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
  user: "snapfeed"
  password: "snapfeed"
  dbname: "snapfeed"
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
    social_events: "social-events"

jwt:
  secret: "your-secret-key-change-in-production"
  expire_time: 24h

feed:
  default_page_size: 10
  max_page_size: 50

rate_limit:
  enabled: true
  requests: 100
  window: 1m`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
