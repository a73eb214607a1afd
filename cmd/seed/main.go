package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/application"
	"github.com/oksasatya/go-users-crud/internal/container"
	"github.com/oksasatya/go-users-crud/pkg/helpers"
)

// seed creates a demo user through the service so that validation, events
// and indexing all apply. Running it twice is harmless.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	c, err := container.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()

	email := getenv("SEED_EMAIL", "demo@example.com")
	bio := "Seeded demo account"
	u, err := c.UserService().Create(ctx, application.CreateUserInput{
		Email: email,
		Name:  getenv("SEED_NAME", "Demo User"),
		Bio:   &bio,
	})
	var exists *application.UserAlreadyExistsError
	switch {
	case errors.As(err, &exists):
		logger.WithField("email", email).Info("demo user already present")
	case err != nil:
		logger.Fatalf("failed to seed user: %v", err)
	default:
		logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("seeded user")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
