package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aimd54/mystery-box/internal/models"
)

// PrizeTypeRepository handles prize type persistence.
type PrizeTypeRepository struct {
	db *DB
}

// NewPrizeTypeRepository creates a new prize type repository.
func NewPrizeTypeRepository(db *DB) *PrizeTypeRepository {
	return &PrizeTypeRepository{db: db}
}

// Create creates a new prize type.
func (r *PrizeTypeRepository) Create(prizeType *models.PrizeType) error {
	if err := r.db.Create(prizeType).Error; err != nil {
		return fmt.Errorf("failed to create prize type %s: %w", prizeType.Name, err)
	}
	return nil
}

// GetByName retrieves a prize type by its unique name.
func (r *PrizeTypeRepository) GetByName(name string) (*models.PrizeType, error) {
	var prizeType models.PrizeType
	if err := r.db.Where("name = ?", name).First(&prizeType).Error; err != nil {
		return nil, fmt.Errorf("failed to get prize type %s: %w", name, err)
	}
	return &prizeType, nil
}

// FindOrCreate returns the prize type with the given name, creating it from
// the template when it does not exist yet. Existing rows are never modified.
func (r *PrizeTypeRepository) FindOrCreate(template *models.PrizeType) (*models.PrizeType, error) {
	existing, err := r.GetByName(template.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := *template
	created.IsActive = true
	if err := r.Create(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// List retrieves all prize types ordered by value, highest first.
func (r *PrizeTypeRepository) List() ([]models.PrizeType, error) {
	var prizeTypes []models.PrizeType
	if err := r.db.Order("value DESC, name ASC").Find(&prizeTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to list prize types: %w", err)
	}
	return prizeTypes, nil
}
