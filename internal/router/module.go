package router

import "github.com/gin-gonic/gin"

// Module registers one resource's routes. rg is the root group, so a module
// owns its own path prefix (e.g. /users).
type Module interface {
	Register(rg *gin.RouterGroup)
}
