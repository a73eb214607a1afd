package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-users-crud/internal/container"
	"github.com/oksasatya/go-users-crud/internal/interface/middleware"
	"github.com/oksasatya/go-users-crud/pkg/response"
	"github.com/oksasatya/go-users-crud/pkg/validation"
)

// NewEngine assembles the HTTP application: global middleware, modules and
// the fallback for unknown routes.
func NewEngine(c *container.Container) *gin.Engine {
	cfg := c.Config
	validation.Init()

	r := gin.New()
	r.Use(middleware.Recovery(c.Logger))
	r.Use(middleware.RequestIDMiddleware())
	if cfg.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(c.Logger))
	}
	r.Use(middleware.SecureHeaders(cfg.SSLRedirect))
	r.Use(middleware.PrettyJSON(cfg.PrettyJSON))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins())))
	r.Use(middleware.ErrorHandler(c.Logger))

	r.NoRoute(func(ctx *gin.Context) {
		response.Error(ctx, http.StatusNotFound, "Route not found", nil)
	})

	reg := NewRegistry(r)
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

// corsConfig allows every origin when none are listed. That is convenient
// for local use but should be narrowed in production.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
