package repository

import (
	"fmt"

	"github.com/aimd54/mystery-box/internal/models"
)

// NotificationRepository appends to the admin notification log.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification entry.
func (r *NotificationRepository) Create(notification *models.AdminNotification) error {
	if err := r.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create admin notification: %w", err)
	}
	return nil
}

// ListRecent retrieves the latest entries, newest first.
func (r *NotificationRepository) ListRecent(limit int) ([]models.AdminNotification, error) {
	var notifications []models.AdminNotification
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admin notifications: %w", err)
	}
	return notifications, nil
}
