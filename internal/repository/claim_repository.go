package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/mystery-box/internal/models"
)

// ClaimRepository handles prize claim persistence.
type ClaimRepository struct {
	db *DB
}

// NewClaimRepository creates a new claim repository.
func NewClaimRepository(db *DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// withRelations preloads everything the listing views denormalize.
func (r *ClaimRepository) withRelations() *gorm.DB {
	return r.db.Preload("User").Preload("Payment").Preload("PrizeType")
}

// Create creates a new prize claim. Associations are never written through.
func (r *ClaimRepository) Create(claim *models.PrizeClaim) error {
	if err := r.db.Omit(clause.Associations).Create(claim).Error; err != nil {
		return fmt.Errorf("failed to create prize claim: %w", err)
	}
	return nil
}

// Update saves all columns of an existing prize claim.
func (r *ClaimRepository) Update(claim *models.PrizeClaim) error {
	if err := r.db.Omit(clause.Associations).Save(claim).Error; err != nil {
		return fmt.Errorf("failed to update prize claim %s: %w", claim.ID, err)
	}
	return nil
}

// GetByID retrieves a prize claim with its user, payment and prize type.
func (r *ClaimRepository) GetByID(id string) (*models.PrizeClaim, error) {
	var claim models.PrizeClaim
	if err := r.withRelations().Where("id = ?", id).First(&claim).Error; err != nil {
		return nil, fmt.Errorf("failed to get prize claim %s: %w", id, err)
	}
	return &claim, nil
}

// ListByStatus lists claims in any of the given statuses, newest first.
// No statuses means every claim.
func (r *ClaimRepository) ListByStatus(statuses ...models.ClaimStatus) ([]models.PrizeClaim, error) {
	query := r.withRelations()
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var claims []models.PrizeClaim
	if err := query.Order("created_at DESC").Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to list prize claims: %w", err)
	}
	return claims, nil
}

// ListOpened lists OPENED claims in the order they were opened.
func (r *ClaimRepository) ListOpened() ([]models.PrizeClaim, error) {
	var claims []models.PrizeClaim
	err := r.withRelations().
		Where("status = ?", models.ClaimStatusOpened).
		Order("opened_at ASC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list opened prize claims: %w", err)
	}
	return claims, nil
}

// ListWithBoxNumber lists opened or delivered claims that carry a box number.
func (r *ClaimRepository) ListWithBoxNumber() ([]models.PrizeClaim, error) {
	var claims []models.PrizeClaim
	err := r.db.Preload("PrizeType").
		Where("box_number IS NOT NULL").
		Where("status IN ?", []models.ClaimStatus{models.ClaimStatusOpened, models.ClaimStatusDelivered}).
		Order("opened_at ASC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list boxed prize claims: %w", err)
	}
	return claims, nil
}

// ListPending lists claims awaiting an admin open, oldest first.
func (r *ClaimRepository) ListPending() ([]models.PrizeClaim, error) {
	var claims []models.PrizeClaim
	err := r.withRelations().
		Where("status = ?", models.ClaimStatusPending).
		Order("created_at ASC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending prize claims: %w", err)
	}
	return claims, nil
}

// FindByPayment returns the claim bound to a payment in the given status, or nil.
func (r *ClaimRepository) FindByPayment(paymentID string, status models.ClaimStatus) (*models.PrizeClaim, error) {
	var claim models.PrizeClaim
	err := r.db.Where("payment_id = ? AND status = ?", paymentID, status).
		Order("created_at ASC").
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find claim for payment %s: %w", paymentID, err)
	}
	return &claim, nil
}

// CountOpenedForUser counts a user's OPENED (undelivered) claims.
func (r *ClaimRepository) CountOpenedForUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PrizeClaim{}).
		Where("user_id = ? AND status = ?", userID, models.ClaimStatusOpened).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count opened claims for user %s: %w", userID, err)
	}
	return count, nil
}

// CountByStatus counts claims in the given status.
func (r *ClaimRepository) CountByStatus(status models.ClaimStatus) (int64, error) {
	var count int64
	if err := r.db.Model(&models.PrizeClaim{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s claims: %w", status, err)
	}
	return count, nil
}

// CountOpenedBetween counts claims opened within [start, end).
func (r *ClaimRepository) CountOpenedBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.PrizeClaim{}).
		Where("opened_at >= ? AND opened_at < ?", start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count opened claims: %w", err)
	}
	return count, nil
}

// CountDeliveredBetween counts claims delivered within [start, end).
func (r *ClaimRepository) CountDeliveredBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.PrizeClaim{}).
		Where("delivered_at >= ? AND delivered_at < ?", start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count delivered claims: %w", err)
	}
	return count, nil
}

// DeleteAll purges every prize claim. Maintenance use only.
func (r *ClaimRepository) DeleteAll() (int64, error) {
	result := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PrizeClaim{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge prize claims: %w", result.Error)
	}
	return result.RowsAffected, nil
}
