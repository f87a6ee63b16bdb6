package models

import (
	"time"
)

// Glow tiers used for visual rarity.
const (
	GlowGold   = "gold"
	GlowPurple = "purple"
	GlowBlue   = "blue"
	GlowGreen  = "green"
)

// PrizeType is a catalog entry persisted on first use.
type PrizeType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Value       int64     `gorm:"not null;default:0" json:"value"` // minor currency units
	Glow        string    `gorm:"size:20;not null;default:green" json:"glow"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for PrizeType model.
func (PrizeType) TableName() string {
	return "prize_types"
}

// ClaimStatus is the lifecycle state of a prize claim.
type ClaimStatus string

// ClaimStatus constants.
const (
	ClaimStatusPending   ClaimStatus = "PENDING_ADMIN_OPEN"
	ClaimStatusOpened    ClaimStatus = "OPENED"
	ClaimStatusDelivered ClaimStatus = "DELIVERED"
	ClaimStatusCancelled ClaimStatus = "CANCELLED"
)

// PrizeClaim is a user's right to a single prize.
type PrizeClaim struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string      `gorm:"not null;index;size:64" json:"user_id"`
	User        *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PaymentID   *string     `gorm:"index;size:36" json:"payment_id"`
	Payment     *Payment    `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	PrizeTypeID *uint       `gorm:"index" json:"prize_type_id"`
	PrizeType   *PrizeType  `gorm:"foreignKey:PrizeTypeID" json:"prize_type,omitempty"`
	Status      ClaimStatus `gorm:"size:32;not null;index" json:"status"`
	BoxNumber   *int        `gorm:"index" json:"box_number"`
	Notes       string      `gorm:"type:text" json:"notes"`
	OpenedBy    *string     `gorm:"size:64" json:"opened_by"`
	OpenedAt    *time.Time  `json:"opened_at"`
	DeliveredAt *time.Time  `json:"delivered_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for PrizeClaim model.
func (PrizeClaim) TableName() string {
	return "prize_claims"
}

// IsOpenUndelivered reports whether the claim holds a prize that has not shipped yet.
func (c *PrizeClaim) IsOpenUndelivered() bool {
	return c.Status == ClaimStatusOpened
}
