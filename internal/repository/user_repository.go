package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aimd54/mystery-box/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %s: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// Update updates a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// CreateOrUpdate mirrors an identity from a verified session token.
// Name and email are only overwritten when the token carries them.
func (r *UserRepository) CreateOrUpdate(user *models.User) error {
	var existing models.User

	err := r.db.Where("id = ?", user.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.Create(user)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", user.ID, err)
	}

	changed := false
	if user.Name != "" && user.Name != existing.Name {
		existing.Name = user.Name
		changed = true
	}
	if user.Email != "" && user.Email != existing.Email {
		existing.Email = user.Email
		changed = true
	}
	*user = existing
	if !changed {
		return nil
	}

	user.UpdatedAt = time.Now()
	return r.Update(user)
}
