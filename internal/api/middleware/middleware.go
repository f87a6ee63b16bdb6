// Package middleware provides the gin middleware for authentication, the admin
// gate, request logging and request metrics.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/api/respond"
	"github.com/aimd54/mystery-box/internal/auth"
	prommetrics "github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// SessionCookie carries the session token for browser callers.
const SessionCookie = "session"

const identityKey = "mysterybox.identity"

// TokenVerifier interface for session token verification.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// UserStore mirrors verified identities into the users table.
type UserStore interface {
	CreateOrUpdate(user *models.User) error
}

// AdminGate decides whether a caller may use admin features.
type AdminGate interface {
	IsAuthorized(email, userID string) bool
}

// Auth requires a valid session token from the Authorization header or the
// session cookie, and mirrors the caller into the users table.
func Auth(verifier TokenVerifier, users UserStore, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Session token rejected")
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
			return
		}

		user := &models.User{ID: identity.UserID, Name: identity.Name, Email: identity.Email}
		if err := users.CreateOrUpdate(user); err != nil {
			log.Error().Err(err).Str("user_id", identity.UserID).Msg("Failed to sync user")
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Internal Server Error")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Admin rejects callers the gate does not authorize. Must run after Auth.
func Admin(gate AdminGate, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
			return
		}
		if !gate.IsAuthorized(identity.Email, identity.UserID) {
			log.Warn().
				Str("user_id", identity.UserID).
				Str("email", identity.Email).
				Str("path", c.Request.URL.Path).
				Msg("Admin access denied")
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Access denied")
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the caller identity set by Auth.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}

// Metrics observes request latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		prommetrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// Logging writes one structured line per request.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
