// Package models defines domain models for the mystery box service.
package models

import (
	"time"
)

// User mirrors an identity issued by the external identity provider.
// The ID is the token subject.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// DisplayName returns the name when set, otherwise the email.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}
