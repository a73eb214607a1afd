package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrettyKey is the gin context key that switches responses to indented JSON.
const PrettyKey = "pretty_json"

// APIResponse is the envelope shared by every endpoint.
type APIResponse struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func Success(ctx *gin.Context, status int, data any, message string) APIResponse {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	write(ctx, status, resp)
	return resp
}

func Error(ctx *gin.Context, status int, message string, details map[string]string) APIResponse {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := APIResponse{
		Success: false,
		Error:   message,
		Details: details,
	}
	write(ctx, status, resp)
	return resp
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string) {
	Error(ctx, status, message, nil)
	ctx.Abort()
}

func write(ctx *gin.Context, status int, body APIResponse) {
	if ctx.GetBool(PrettyKey) {
		ctx.IndentedJSON(status, body)
		return
	}
	ctx.JSON(status, body)
}
