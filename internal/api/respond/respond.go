// Package respond writes the JSON error envelope shared by every handler.
package respond

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// Machine-readable error codes.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeInternal     = "internal_error"
)

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error":     message,
		"code":      code,
		"timestamp": time.Now().UTC(),
	})
}

// FromError maps a service error onto the envelope. Unknown errors are
// logged and reported as a generic 500 so internals never leak.
func FromError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, claims.ErrValidation):
		Error(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, claims.ErrNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, claims.ErrConflict):
		Error(c, http.StatusBadRequest, CodeConflict, err.Error())
	default:
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(fallback)
		Error(c, http.StatusInternalServerError, CodeInternal, fallback)
	}
}
