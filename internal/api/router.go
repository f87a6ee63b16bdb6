// Package api assembles the HTTP surface.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/api/admin"
	"github.com/aimd54/mystery-box/internal/api/dashboard"
	"github.com/aimd54/mystery-box/internal/api/middleware"
	"github.com/aimd54/mystery-box/internal/api/webhook"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

// RouterConfig wires handlers and middleware dependencies into the router.
type RouterConfig struct {
	Admin     *admin.Handler
	Dashboard *dashboard.Handler
	Webhook   *webhook.Handler

	Verifier middleware.TokenVerifier
	Users    middleware.UserStore
	Gate     middleware.AdminGate
	Database HealthChecker

	Log *logger.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(cfg.Log))
	r.Use(middleware.Metrics())

	r.GET("/health", healthHandler(cfg.Database))
	r.POST("/webhook", cfg.Webhook.HandleStripe)

	authed := r.Group("/")
	authed.Use(middleware.Auth(cfg.Verifier, cfg.Users, cfg.Log))
	cfg.Dashboard.Register(authed)

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.Auth(cfg.Verifier, cfg.Users, cfg.Log))
	adminGroup.Use(middleware.Admin(cfg.Gate, cfg.Log))
	cfg.Admin.Register(adminGroup)

	return r
}

func healthHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "timestamp": time.Now().UTC()}
		if db != nil {
			if err := db.Health(); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = err.Error()
			}
		}
		c.JSON(status, body)
	}
}
