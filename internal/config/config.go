// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Allocation    AllocationConfig    `mapstructure:"allocation"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Environment     string `mapstructure:"environment"`
	BaseURL         string `mapstructure:"base_url"` // Used for checkout success/cancel redirects
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// AuthConfig contains session token verification and admin access settings.
type AuthConfig struct {
	JWTSecret           string `mapstructure:"jwt_secret"`
	Issuer              string `mapstructure:"issuer"`
	EnableAccessControl bool   `mapstructure:"enable_access_control"`
	AuthorizedEmail     string `mapstructure:"authorized_email"`
	AuthorizedUserID    string `mapstructure:"authorized_user_id"`
}

// StripeConfig contains payment processor settings for the unlock checkout.
type StripeConfig struct {
	SecretKey          string `mapstructure:"secret_key"`
	WebhookSecret      string `mapstructure:"webhook_secret"`
	UnlockAmount       int64  `mapstructure:"unlock_amount"` // minor currency units
	Currency           string `mapstructure:"currency"`
	ProductName        string `mapstructure:"product_name"`
	ProductDescription string `mapstructure:"product_description"`
}

// DiscordConfig contains the operations channel webhook settings.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
	AvatarURL  string `mapstructure:"avatar_url"`
	Enabled    bool   `mapstructure:"enabled"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool   `mapstructure:"migrate_on_start"`
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CatalogConfig points at an optional YAML prize catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"` // empty uses the built-in catalog
}

// AllocationConfig tunes the weighted-random draw.
type AllocationConfig struct {
	WeightConstant int64 `mapstructure:"weight_constant"`
}

// NotificationsConfig contains outbound notification queue settings.
type NotificationsConfig struct {
	QueueKey     string `mapstructure:"queue_key"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	BaseBackoff  int    `mapstructure:"base_backoff"`  // seconds
	PollInterval int    `mapstructure:"poll_interval"` // seconds
}

// SchedulerConfig contains the daily summary scheduler settings.
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	DailySummaryCron string `mapstructure:"daily_summary_cron"`
	Timezone         string `mapstructure:"timezone"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// setDefaults registers fallback values used when neither file nor env provide one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("auth.enable_access_control", true)

	v.SetDefault("stripe.unlock_amount", 500)
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("stripe.product_name", "Prize Unlock")
	v.SetDefault("stripe.product_description", "Unlock a special prize with this one-time payment")

	v.SetDefault("discord.username", "Prize Bot")

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.postgres.migrate_on_start", true)

	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("allocation.weight_constant", 1000)

	v.SetDefault("notifications.queue_key", "mysterybox:notifications")
	v.SetDefault("notifications.max_attempts", 5)
	v.SetDefault("notifications.base_backoff", 5)
	v.SetDefault("notifications.poll_interval", 2)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_summary_cron", "0 21 * * *")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mystery-box/")
	}

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	_ = v.BindEnv("server.base_url", "SERVER_BASE_URL")

	// Auth configuration
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = v.BindEnv("auth.issuer", "AUTH_ISSUER")
	_ = v.BindEnv("auth.enable_access_control", "ENABLE_ACCESS_CONTROL")
	_ = v.BindEnv("auth.authorized_email", "AUTHORIZED_USER_EMAIL")
	_ = v.BindEnv("auth.authorized_user_id", "AUTHORIZED_USER_ID")

	// Stripe configuration
	_ = v.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	_ = v.BindEnv("stripe.unlock_amount", "STRIPE_UNLOCK_AMOUNT")
	_ = v.BindEnv("stripe.currency", "STRIPE_CURRENCY")

	// Discord configuration
	_ = v.BindEnv("discord.webhook_url", "DISCORD_WEBHOOK_URL")
	_ = v.BindEnv("discord.enabled", "DISCORD_ENABLED")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.migrate_on_start", "POSTGRES_MIGRATE_ON_START")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")

	// Catalog and allocation
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")
	_ = v.BindEnv("allocation.weight_constant", "ALLOCATION_WEIGHT_CONSTANT")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.daily_summary_cron", "SCHEDULER_DAILY_SUMMARY_CRON")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// Read config file. A missing file is fine when everything comes from the environment.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.EnableAccessControl && c.Auth.AuthorizedEmail == "" && c.Auth.AuthorizedUserID == "" {
		return fmt.Errorf("auth.authorized_email or auth.authorized_user_id is required when access control is enabled")
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe.secret_key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required")
	}
	if c.Stripe.UnlockAmount <= 0 {
		return fmt.Errorf("stripe.unlock_amount must be positive")
	}
	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		return fmt.Errorf("discord.webhook_url is required when discord is enabled")
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Allocation.WeightConstant <= 0 {
		return fmt.Errorf("allocation.weight_constant must be positive")
	}
	if c.Notifications.MaxAttempts < 1 {
		return fmt.Errorf("notifications.max_attempts must be at least 1")
	}

	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// BaseBackoffDuration returns the first retry delay for failed notifications.
func (c *NotificationsConfig) BaseBackoffDuration() time.Duration {
	return time.Duration(c.BaseBackoff) * time.Second
}

// PollIntervalDuration returns how often the dispatcher polls an empty queue.
func (c *NotificationsConfig) PollIntervalDuration() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}
