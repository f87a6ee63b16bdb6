// Package catalog holds the static prize pool and its box layout.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aimd54/mystery-box/internal/models"
)

// Entry is one prize definition. Count is how many boxes on the board hold it.
type Entry struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Value       int64  `yaml:"value" json:"value"` // minor currency units
	Glow        string `yaml:"glow" json:"glow"`
	Count       int    `yaml:"count" json:"count"`
}

// PrizeType returns the persistence template for the entry.
func (e Entry) PrizeType() *models.PrizeType {
	return &models.PrizeType{
		Name:        e.Name,
		Description: e.Description,
		Value:       e.Value,
		Glow:        e.Glow,
		IsActive:    true,
	}
}

// Catalog is an ordered, immutable prize pool.
type Catalog struct {
	entries []Entry
	boxes   []int // box n holds entries[boxes[n-1]]
	byName  map[string]int
}

type fileFormat struct {
	Prizes []Entry `yaml:"prizes"`
}

// New builds a catalog from entries in declared order.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog must contain at least one prize")
	}

	c := &Catalog{
		entries: make([]Entry, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if e.Name == "" {
			return nil, fmt.Errorf("prize %d has no name", i+1)
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate prize %q", e.Name)
		}
		if e.Value < 0 {
			return nil, fmt.Errorf("prize %q has negative value", e.Name)
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("prize %q has negative count", e.Name)
		}
		if e.Glow == "" {
			c.entries[i].Glow = models.GlowGreen
		}
		c.byName[e.Name] = i
		for n := 0; n < e.Count; n++ {
			c.boxes = append(c.boxes, i)
		}
	}

	return c, nil
}

// LoadFile reads a YAML catalog of the form `prizes: [{name, value, glow, count}]`.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	c, err := New(f.Prizes)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog at path, or the built-in default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Entries returns a copy of the entries in declared order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds an entry by exact name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// TotalBoxes is the size of the board.
func (c *Catalog) TotalBoxes() int {
	return len(c.boxes)
}

// PrizeForBox maps a 1-based box number to its entry.
func (c *Catalog) PrizeForBox(n int) (Entry, bool) {
	if n < 1 || n > len(c.boxes) {
		return Entry{}, false
	}
	return c.entries[c.boxes[n-1]], true
}
