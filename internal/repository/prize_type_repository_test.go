package repository

import (
	"testing"

	"github.com/aimd54/mystery-box/internal/models"
)

func TestPrizeTypeRepository_FindOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPrizeTypeRepository(db)

	first, err := repo.FindOrCreate(&models.PrizeType{Name: "151 ETB", Value: 5000, Glow: models.GlowGold})
	if err != nil {
		t.Fatalf("FindOrCreate() failed: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("Expected prize type ID to be set")
	}

	// Existing rows win over the template.
	second, err := repo.FindOrCreate(&models.PrizeType{Name: "151 ETB", Value: 1, Glow: models.GlowGreen})
	if err != nil {
		t.Fatalf("FindOrCreate() second call failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same ID %d, got %d", first.ID, second.ID)
	}
	if second.Value != 5000 || second.Glow != models.GlowGold {
		t.Errorf("Expected stored value/glow to be unchanged, got %d/%s", second.Value, second.Glow)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 prize type, got %d", len(all))
	}
}
