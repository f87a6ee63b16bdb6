package catalog

import "github.com/aimd54/mystery-box/internal/models"

var defaultEntries = []Entry{
	{Name: "Unified Minds Booster Box", Value: 12000, Glow: models.GlowGold, Count: 1},
	{Name: "151 UPC", Value: 10000, Glow: models.GlowGold, Count: 1},
	{Name: "151 ETB", Value: 5000, Glow: models.GlowGold, Count: 1},
	{Name: "Random Pack", Value: 500, Glow: models.GlowBlue, Count: 120},
	{Name: "Random Single (Low-tier)", Value: 200, Glow: models.GlowGreen, Count: 420},
	{Name: "Random Single (Mid-tier)", Value: 1500, Glow: models.GlowBlue, Count: 20},
	{Name: "Random Single (High-tier)", Value: 3500, Glow: models.GlowPurple, Count: 12},
	{Name: "Spin Punishment Wheel", Value: 0, Glow: models.GlowGreen, Count: 60},
	{Name: "Vintage Card Bundle", Value: 4000, Glow: models.GlowBlue, Count: 20},
	{Name: "Magic Booster Pack", Value: 500, Glow: models.GlowBlue, Count: 20},
	{Name: "Next Box 50% Off", Value: 0, Glow: models.GlowBlue, Count: 40},
	{Name: "Womp Womp", Value: 0, Glow: models.GlowGreen, Count: 170},
	{Name: "Gem Depo (Boxed)", Value: 2500, Glow: models.GlowGreen, Count: 50},
	{Name: "Random Slab", Value: 3000, Glow: models.GlowPurple, Count: 25},
	{Name: "Random Pokémon Merch (Pick)", Value: 2000, Glow: models.GlowPurple, Count: 20},
	{Name: "Custom Pokémon Art", Value: 1500, Glow: models.GlowPurple, Count: 20},
}

// Default returns the built-in 1000-box prize pool.
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic("catalog: invalid default entries: " + err.Error())
	}
	return c
}
