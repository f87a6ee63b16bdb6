package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: 9000
auth:
  jwt_secret: "secret"
  authorized_email: "admin@example.com"
stripe:
  secret_key: "sk_test_123"
  webhook_secret: "whsec_123"
database:
  postgres:
    host: "localhost"
    database: "mysterybox"
    user: "mysterybox"
  redis:
    host: "localhost"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Auth.EnableAccessControl)
	assert.Equal(t, int64(500), cfg.Stripe.UnlockAmount)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, int64(1000), cfg.Allocation.WeightConstant)
	assert.Equal(t, 5, cfg.Notifications.MaxAttempts)
	assert.Equal(t, "mysterybox:notifications", cfg.Notifications.QueueKey)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AUTHORIZED_USER_EMAIL", "ops@example.com")
	t.Setenv("ENABLE_ACCESS_CONTROL", "false")
	t.Setenv("STRIPE_UNLOCK_AMOUNT", "1000")

	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "ops@example.com", cfg.Auth.AuthorizedEmail)
	assert.False(t, cfg.Auth.EnableAccessControl)
	assert.Equal(t, int64(1000), cfg.Stripe.UnlockAmount)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			JWTSecret:           "secret",
			EnableAccessControl: true,
			AuthorizedEmail:     "admin@example.com",
		},
		Stripe: StripeConfig{SecretKey: "sk", WebhookSecret: "whsec", UnlockAmount: 500},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{Host: "localhost", Database: "db", User: "user"},
			Redis:    RedisConfig{Host: "localhost"},
		},
		Allocation:    AllocationConfig{WeightConstant: 1000},
		Notifications: NotificationsConfig{MaxAttempts: 3},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "auth.jwt_secret"},
		{
			name: "access control without authorized identity",
			mutate: func(c *Config) {
				c.Auth.AuthorizedEmail = ""
				c.Auth.AuthorizedUserID = ""
			},
			wantErr: "auth.authorized_email",
		},
		{
			name: "access control disabled needs no identity",
			mutate: func(c *Config) {
				c.Auth.EnableAccessControl = false
				c.Auth.AuthorizedEmail = ""
			},
		},
		{name: "missing webhook secret", mutate: func(c *Config) { c.Stripe.WebhookSecret = "" }, wantErr: "stripe.webhook_secret"},
		{name: "zero unlock amount", mutate: func(c *Config) { c.Stripe.UnlockAmount = 0 }, wantErr: "stripe.unlock_amount"},
		{name: "discord enabled without url", mutate: func(c *Config) { c.Discord.Enabled = true }, wantErr: "discord.webhook_url"},
		{name: "missing redis host", mutate: func(c *Config) { c.Database.Redis.Host = "" }, wantErr: "database.redis.host"},
		{name: "zero weight constant", mutate: func(c *Config) { c.Allocation.WeightConstant = 0 }, wantErr: "allocation.weight_constant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
