package models

import (
	"time"
)

// Payment records a completed checkout. Immutable once written.
type Payment struct {
	ID                      string    `gorm:"primaryKey;size:36" json:"id"`
	UserID                  string    `gorm:"not null;index;size:64" json:"user_id"`
	User                    *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount                  int64     `gorm:"not null" json:"amount"` // minor currency units
	Currency                string    `gorm:"size:8;not null" json:"currency"`
	Status                  string    `gorm:"size:32;not null" json:"status"`
	StripePaymentIntentID   string    `gorm:"size:255;index" json:"stripe_payment_intent_id"`
	StripeCheckoutSessionID string    `gorm:"size:255;uniqueIndex" json:"stripe_checkout_session_id"`
	CreatedAt               time.Time `json:"created_at"`
}

// TableName specifies the table name for Payment model.
func (Payment) TableName() string {
	return "payments"
}

// PaymentStatusPaid is the processor status of a settled checkout.
const PaymentStatusPaid = "paid"
