package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/container"
	"github.com/oksasatya/go-users-crud/pkg/helpers"
)

// reindex brings the search index in line with every stored user.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-reindex", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if len(cfg.ESAddrs()) == 0 {
		logger.Fatal("ELASTICSEARCH_ADDRS is not set")
	}

	ctx := context.Background()
	c, err := container.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()

	svc := c.UserService()
	if svc.Index == nil {
		logger.Fatal("search index unavailable")
	}
	users, err := svc.GetAll(ctx)
	if err != nil {
		logger.Fatalf("list users: %v", err)
	}

	failed := 0
	for i := range users {
		if err := svc.Resync(ctx, users[i].ID); err != nil {
			failed++
			logger.WithError(err).WithField("user_id", users[i].ID).Warn("index failed")
		}
	}
	logger.WithFields(logrus.Fields{"total": len(users), "failed": failed}).Info("reindex finished")
	if failed > 0 {
		logger.Exit(1)
	}
}
