package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-users-crud/internal/interface/http"
)

// UserModule serves the users resource:
// GET /users, GET /users/search, GET /users/:id, POST /users,
// PATCH|PUT /users/:id, DELETE /users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	// applied to every /users route, e.g. the rate limiter
	Middleware []gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, mw ...gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Middleware: mw}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users", m.Middleware...)
	{
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.POST("", m.Handler.Create)
		users.PATCH("/:id", m.Handler.Update)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
