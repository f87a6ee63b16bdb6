// Package auth verifies session tokens and decides admin access.
package auth

import (
	"github.com/aimd54/mystery-box/internal/config"
)

// Gate makes the binary admin decision.
type Gate struct {
	enabled bool
	email   string
	userID  string
}

// NewGate creates a gate from the injected auth configuration.
func NewGate(cfg config.AuthConfig) *Gate {
	return &Gate{
		enabled: cfg.EnableAccessControl,
		email:   cfg.AuthorizedEmail,
		userID:  cfg.AuthorizedUserID,
	}
}

// IsAuthorized reports whether the caller may use admin features.
// Empty caller values never match a configured identity.
func (g *Gate) IsAuthorized(email, userID string) bool {
	if !g.enabled {
		return true
	}
	if email != "" && g.email != "" && email == g.email {
		return true
	}
	if userID != "" && g.userID != "" && userID == g.userID {
		return true
	}
	return false
}
