package router

import (
	"time"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/container"
	handlers "github.com/oksasatya/go-users-crud/internal/interface/http"
	"github.com/oksasatya/go-users-crud/internal/interface/middleware"
	"github.com/oksasatya/go-users-crud/internal/router/modules"
)

// InitModules builds every module from the container and adds it to the
// registry. Call it once per engine.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(cfg.AppName, cfg.AppVersion)))

	keyFn := middleware.KeyByIP()
	if cfg.RateLimitKey == config.RateLimitKeyRoute {
		keyFn = middleware.KeyByIPAndRoute()
	}
	limiter := middleware.LocalRateLimit(cfg.RateLimitPerMinute, time.Minute, keyFn)
	if c.Redis != nil {
		limiter = middleware.RateLimit(c.Redis, cfg.RateLimitPerMinute, time.Minute, keyFn, c.Logger)
	}
	r.Add(modules.NewUserModule(handlers.NewUserHandler(c.UserService(), c.Logger), limiter))
}
