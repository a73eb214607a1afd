package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/application"
	"github.com/oksasatya/go-users-crud/internal/domain/repository"
	"github.com/oksasatya/go-users-crud/internal/infrastructure/cache"
	"github.com/oksasatya/go-users-crud/internal/infrastructure/memory"
	"github.com/oksasatya/go-users-crud/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-users-crud/internal/infrastructure/postgres"
	"github.com/oksasatya/go-users-crud/internal/infrastructure/search"
	"github.com/oksasatya/go-users-crud/pkg/helpers"
)

// Container owns the infrastructure clients of one process and builds the
// services on top of them. Nil clients mean the backend is not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool *pgxpool.Pool
	Redis  *redis.Client
	ES     *elasticsearch.Client
	Rabbit *messaging.RabbitPublisher

	usersOnce sync.Once
	userRepo  repository.UserRepository
	userSvc   *application.Service
}

// New returns a container without any backend attached. Callers set the
// client fields they have, or use Connect.
func New(cfg *config.Config, logger *logrus.Logger) *Container {
	return &Container{Config: cfg, Logger: logger}
}

// Connect opens the backends named by cfg. Postgres is required when it is
// the storage driver; redis, elasticsearch and rabbitmq are optional and
// are skipped with a warning when they cannot be reached.
func Connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := New(cfg, logger)

	if cfg.StorageDriver == config.StorageDriverPostgres {
		pool, err := pginfra.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.PGPool = pool
		if cfg.DBAutoMigrate {
			if err := pginfra.RunMigrations(cfg.DatabaseURL, logger); err != nil {
				c.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
	}

	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, cache and rate limiting disabled")
			_ = rdb.Close()
		} else {
			c.Redis = rdb
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(helpers.ESOptions{
			Addrs:      addrs,
			Username:   cfg.ElasticsearchUser,
			Password:   cfg.ElasticsearchPass,
			Timeout:    cfg.ESRequestTimeout,
			MaxRetries: cfg.ESMaxRetries,
		})
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client init failed, search disabled")
		} else {
			c.ES = es
		}
	}

	if cfg.RabbitMQURL != "" {
		pub, err := messaging.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, user events disabled")
		} else {
			c.Rabbit = pub
		}
	}

	return c, nil
}

func (c *Container) Close() {
	c.Rabbit.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}

// UserRepository returns the configured store, wrapped with the redis
// read-through cache when redis is available.
func (c *Container) UserRepository() repository.UserRepository {
	c.buildUsers()
	return c.userRepo
}

// UserService returns the process-wide user service.
func (c *Container) UserService() *application.Service {
	c.buildUsers()
	return c.userSvc
}

func (c *Container) buildUsers() {
	c.usersOnce.Do(func() {
		var repo repository.UserRepository
		if c.PGPool != nil {
			repo = pginfra.NewUserRepository(c.PGPool)
		} else {
			repo = memory.NewUserRepository()
		}
		if c.Redis != nil && c.Config.UserCacheTTL > 0 {
			repo = cache.NewUserRepository(repo, c.Redis, c.Config.UserCacheTTL, c.Logger)
		}
		c.userRepo = repo

		// typed nils must not leak into the interfaces
		var index application.Indexer
		if c.ES != nil {
			index = search.NewUserIndex(c.ES, c.Config.ESUsersIndex, c.Config.ESRequestTimeout)
		}
		var events application.EventPublisher
		if c.Rabbit != nil {
			events = c.Rabbit
		}
		c.userSvc = application.NewService(repo, c.Logger, index, events)
	})
}
