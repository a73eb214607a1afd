package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/container"
	"github.com/oksasatya/go-users-crud/internal/domain/entity"
	"github.com/oksasatya/go-users-crud/internal/infrastructure/messaging"
	"github.com/oksasatya/go-users-crud/pkg/helpers"
)

// events_worker consumes user lifecycle events, logs them and resyncs the
// affected user's search document from the store, so the index converges
// even when the API's own indexing call failed or events arrive out of order.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-events", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserEventsQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()
	svc := c.UserService()
	if svc.Index == nil {
		logger.Warn("search index unavailable, events are only logged")
	}

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue, cfg.RabbitMQPrefetch)
	if err != nil {
		logger.Fatalf("rabbitmq: %v", err)
	}
	defer consumer.Close()

	logger.Infof("events worker listening on queue=%s", consumer.Queue)
	err = consumer.Consume(ctx, func(ctx context.Context, ev entity.UserEvent) error {
		entry := logger.WithFields(logrus.Fields{"type": ev.Type, "user_id": ev.UserID, "occurred_at": ev.OccurredAt})
		if err := svc.Resync(ctx, ev.UserID); err != nil {
			entry.WithError(err).Warn("index resync failed")
			return err
		}
		entry.Info("user event")
		return nil
	})
	if err != nil {
		logger.Errorf("consumer stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("events worker stopped")
}
