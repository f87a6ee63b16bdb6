// Package repository persists users, prize types, claims, payments and the
// admin notification log with GORM.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/pkg/logger"
)

const (
	applicationName = "mystery-box"
	connectTimeout  = 10 // seconds
	healthTimeout   = 2 * time.Second
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// postgresDSN builds a libpq keyword/value DSN. Values are quoted so passwords
// with spaces or quotes survive.
func postgresDSN(cfg *config.PostgresConfig) string {
	quote := func(v string) string {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		return "'" + v + "'"
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d application_name=%s",
		quote(cfg.Host),
		cfg.Port,
		quote(cfg.User),
		quote(cfg.Password),
		quote(cfg.Database),
		sslMode,
		connectTimeout,
		applicationName,
	)
}

// gormLogLevel follows the service log level: SQL statements only at debug.
func gormLogLevel(level zerolog.Level) gormlogger.LogLevel {
	switch {
	case level == zerolog.Disabled:
		return gormlogger.Silent
	case level <= zerolog.DebugLevel:
		return gormlogger.Info
	case level >= zerolog.ErrorLevel:
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// NewDB connects to PostgreSQL and applies the pool settings.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(log.Level())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	wrapped := &DB{db}
	if err := wrapped.Health(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Connected to PostgreSQL")

	return wrapped, nil
}

// AutoMigrate creates the schema from the models. Used by tests against SQLite;
// PostgreSQL deployments go through Migrate.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.PrizeType{},
		&models.Payment{},
		&models.PrizeClaim{},
		&models.AdminNotification{},
	)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database, giving up after healthTimeout so /health stays responsive.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
