package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-users-crud/pkg/response"
)

// PrettyJSON turns on indented responses when always is set or the request
// carries a ?pretty query parameter.
func PrettyJSON(always bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.GetQuery("pretty"); ok || always {
			c.Set(response.PrettyKey, true)
		}
		c.Next()
	}
}
