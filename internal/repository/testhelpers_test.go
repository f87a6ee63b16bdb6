package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/mystery-box/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Every pooled connection would otherwise get its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return wrapped
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, id, name string) *models.User {
	t.Helper()

	user := &models.User{ID: id, Name: name, Email: id + "@example.com"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestPayment creates a paid payment for the user.
func createTestPayment(t *testing.T, db *DB, id, userID string) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		ID:                      id,
		UserID:                  userID,
		Amount:                  500,
		Currency:                "usd",
		Status:                  models.PaymentStatusPaid,
		StripePaymentIntentID:   "pi_" + id,
		StripeCheckoutSessionID: "cs_" + id,
	}
	if err := NewPaymentRepository(db).Create(payment); err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}
	return payment
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
