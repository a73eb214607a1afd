package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/pkg/response"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders errors that handlers attached with c.Error and did
// not answer themselves. Details only go to the log.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(RequestIDKey),
			"error":      c.Errors.String(),
		}).Error("unhandled error")

		if !c.Writer.Written() {
			response.Error(c, http.StatusInternalServerError, internalErrorMessage, nil)
		}
	}
}

// Recovery turns a panic into the same 500 envelope as ErrorHandler.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(RequestIDKey),
			"panic":      fmt.Sprint(rec),
		}).Error("panic recovered")
		response.Abort(c, http.StatusInternalServerError, internalErrorMessage)
	})
}
