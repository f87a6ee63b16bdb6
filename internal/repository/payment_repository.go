package repository

import (
	"fmt"

	"github.com/aimd54/mystery-box/internal/models"
)

// PaymentRepository handles payment persistence.
type PaymentRepository struct {
	db *DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment record.
func (r *PaymentRepository) Create(payment *models.Payment) error {
	if err := r.db.Omit("User").Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Preload("User").Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment by id %s: %w", id, err)
	}
	return &payment, nil
}

// GetByCheckoutSessionID retrieves a payment by its processor checkout session.
func (r *PaymentRepository) GetByCheckoutSessionID(sessionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("stripe_checkout_session_id = ?", sessionID).First(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment by checkout session %s: %w", sessionID, err)
	}
	return &payment, nil
}

// ListByUser retrieves a user's payments, newest first.
func (r *PaymentRepository) ListByUser(userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}
	return payments, nil
}

// ListUnclaimed retrieves payments that no prize claim references yet.
func (r *PaymentRepository) ListUnclaimed() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Preload("User").
		Where("NOT EXISTS (SELECT 1 FROM prize_claims WHERE prize_claims.payment_id = payments.id)").
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unclaimed payments: %w", err)
	}
	return payments, nil
}

// HasClaim reports whether any prize claim references the payment.
func (r *PaymentRepository) HasClaim(paymentID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.PrizeClaim{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check claims for payment %s: %w", paymentID, err)
	}
	return count > 0, nil
}
