package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/snapfeed/snapfeed/internal/repository"
	"github.com/snapfeed/snapfeed/internal/services"
	"github.com/snapfeed/snapfeed/internal/workers"
	"github.com/snapfeed/snapfeed/pkg/logger"
	"github.com/snapfeed/snapfeed/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger()
	logger.Info("Starting SnapFeed notification worker...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents, "notification-worker-group")

	notificationRepo := repository.NewNotificationRepository(db.DB)
	notificationService := services.NewNotificationService(notificationRepo, logger)

	worker := workers.NewNotificationWorker(consumer, notificationService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := worker.Start(ctx); err != nil {
			logger.WithError(err).Error("Notification worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if err := worker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop notification worker")
	}

	logger.Info("Worker exited")
}
