package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/mystery-box/internal/config"
)

func TestGate_IsAuthorized(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.AuthConfig
		email  string
		userID string
		want   bool
	}{
		{
			name: "access control disabled",
			cfg:  config.AuthConfig{EnableAccessControl: false},
			want: true,
		},
		{
			name:  "matching email",
			cfg:   config.AuthConfig{EnableAccessControl: true, AuthorizedEmail: "admin@example.com"},
			email: "admin@example.com",
			want:  true,
		},
		{
			name:   "matching id",
			cfg:    config.AuthConfig{EnableAccessControl: true, AuthorizedUserID: "admin_1"},
			userID: "admin_1",
			want:   true,
		},
		{
			name:   "no match",
			cfg:    config.AuthConfig{EnableAccessControl: true, AuthorizedEmail: "admin@example.com", AuthorizedUserID: "admin_1"},
			email:  "user@example.com",
			userID: "user_1",
			want:   false,
		},
		{
			name: "empty caller never matches empty config",
			cfg:  config.AuthConfig{EnableAccessControl: true},
			want: false,
		},
		{
			name:   "empty email with configured id only",
			cfg:    config.AuthConfig{EnableAccessControl: true, AuthorizedUserID: "admin_1"},
			userID: "",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.cfg)
			assert.Equal(t, tt.want, gate.IsAuthorized(tt.email, tt.userID))
		})
	}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("test-secret", "identity.example.com")

	token, err := v.Sign(Identity{UserID: "user_1", Email: "ash@example.com", Name: "Ash"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", id.UserID)
	assert.Equal(t, "ash@example.com", id.Email)
	assert.Equal(t, "Ash", id.Name)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("test-secret", "identity.example.com")

	wrongKey, err := NewTokenVerifier("other-secret", "identity.example.com").Sign(Identity{UserID: "u"}, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenVerifier("test-secret", "elsewhere").Sign(Identity{UserID: "u"}, time.Hour)
	require.NoError(t, err)

	expired, err := v.Sign(Identity{UserID: "u"}, -time.Minute)
	require.NoError(t, err)

	noSubject, err := v.Sign(Identity{Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     unsigned,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}
