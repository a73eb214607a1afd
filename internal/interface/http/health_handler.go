package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-users-crud/pkg/response"
)

type HealthHandler struct {
	AppName    string
	AppVersion string
	now        func() time.Time
}

func NewHealthHandler(appName, appVersion string) *HealthHandler {
	return &HealthHandler{AppName: appName, AppVersion: appVersion, now: time.Now}
}

// Root describes the running service.
func (h *HealthHandler) Root(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"name":      h.AppName,
		"version":   h.AppVersion,
		"timestamp": h.now().UTC(),
	}, "")
}

// Health is a liveness probe and does not touch any dependency.
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	}, "")
}
