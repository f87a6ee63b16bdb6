package mocks

import "github.com/aimd54/mystery-box/internal/models"

// MockNotificationRepository is a simple mock for the admin notification log
type MockNotificationRepository struct {
	CreateFunc func(notification *models.AdminNotification) error

	Created []models.AdminNotification
}

// Create records the entry, or delegates to CreateFunc when set.
func (m *MockNotificationRepository) Create(notification *models.AdminNotification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(notification)
	}
	m.Created = append(m.Created, *notification)
	return nil
}
