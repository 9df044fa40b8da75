package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squeezyhq/squeezy/internal/apperr"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Message   string      `json:"message"`
	ErrorCode apperr.Code `json:"errorCode"`
}

// respondError renders a failure. Domain errors carry their own status and
// code; anything else is logged and masked as a generic 500 so internals
// never leak to clients.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
	}
	c.AbortWithStatusJSON(appErr.Status, errorBody{
		Message:   appErr.Message,
		ErrorCode: appErr.Code,
	})
}

// respondValidation renders a request-binding failure as a 400.
func respondValidation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Message:   err.Error(),
		ErrorCode: apperr.CodeValidation,
	})
}
