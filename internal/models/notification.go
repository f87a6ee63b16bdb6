package models

import (
	"time"
)

// AdminNotification is an append-only audit entry for claim lifecycle events.
type AdminNotification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Type         string    `gorm:"size:50;not null;index" json:"type"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Message      string    `gorm:"type:text" json:"message"`
	UserID       string    `gorm:"size:64;index" json:"user_id"`
	PrizeClaimID *string   `gorm:"size:36;index" json:"prize_claim_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for AdminNotification model.
func (AdminNotification) TableName() string {
	return "admin_notifications"
}

// AdminNotification type constants.
const (
	NotificationNewPayment        = "NEW_PAYMENT"
	NotificationPrizeOpened       = "PRIZE_OPENED"
	NotificationManualPrizeOpened = "MANUAL_PRIZE_OPENED"
	NotificationDirectBoxOpened   = "DIRECT_BOX_OPENED"
	NotificationPrizeDelivered    = "PRIZE_DELIVERED"
	NotificationPrizeCancelled    = "PRIZE_CANCELLED"
)
