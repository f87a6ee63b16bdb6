// Package allocation selects prizes for box openings.
package allocation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/aimd54/mystery-box/internal/catalog"
	"github.com/aimd54/mystery-box/internal/models"
)

// DefaultWeightConstant is C in weight = max(1, floor(C / (value + 1))).
const DefaultWeightConstant = 1000

// Selection modes, also used as metric labels.
const (
	ModeRandom = "random"
	ModeName   = "name"
	ModeBox    = "box"
)

// ErrBoxOutOfRange is returned for a box number outside the board.
var ErrBoxOutOfRange = errors.New("box number out of range")

// Source draws a uniform integer in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// PrizeTypeStore persists prize types on first use.
type PrizeTypeStore interface {
	FindOrCreate(template *models.PrizeType) (*models.PrizeType, error)
}

// Engine allocates prizes from a catalog.
type Engine struct {
	catalog    *catalog.Catalog
	prizeTypes PrizeTypeStore
	source     Source

	entries    []catalog.Entry
	cumulative []int
	total      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource overrides the random source.
func WithSource(src Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// NewEngine builds the weighted table for the catalog.
func NewEngine(cat *catalog.Catalog, weightConstant int64, prizeTypes PrizeTypeStore, opts ...Option) *Engine {
	if weightConstant <= 0 {
		weightConstant = DefaultWeightConstant
	}

	e := &Engine{
		catalog:    cat,
		prizeTypes: prizeTypes,
		source:     globalSource{},
		entries:    cat.Entries(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cumulative = make([]int, len(e.entries))
	for i, entry := range e.entries {
		e.total += Weight(entry.Value, weightConstant)
		e.cumulative[i] = e.total
	}

	return e
}

// Weight is the number of copies an entry gets in the flattened draw list.
func Weight(value, weightConstant int64) int {
	if value < 0 {
		value = 0
	}
	w := weightConstant / (value + 1)
	if w < 1 {
		return 1
	}
	return int(w)
}

// Catalog returns the catalog the engine allocates from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Random draws one entry. Position k of the flattened list belongs to the
// first entry whose cumulative weight exceeds k.
func (e *Engine) Random() catalog.Entry {
	k := e.source.IntN(e.total)
	i := sort.Search(len(e.cumulative), func(i int) bool {
		return e.cumulative[i] > k
	})
	return e.entries[i]
}

// ByName returns the catalog entry with that name, or an ad-hoc entry built
// from the caller's value and glow.
func (e *Engine) ByName(name string, value *int64, glow string) catalog.Entry {
	if entry, ok := e.catalog.Lookup(name); ok {
		return entry
	}

	entry := catalog.Entry{Name: name, Glow: glow}
	if value != nil && *value > 0 {
		entry.Value = *value
	}
	if entry.Glow == "" {
		entry.Glow = models.GlowGreen
	}
	return entry
}

// ByBox maps a 1-based box number to its entry.
func (e *Engine) ByBox(n int) (catalog.Entry, error) {
	entry, ok := e.catalog.PrizeForBox(n)
	if !ok {
		return catalog.Entry{}, fmt.Errorf("%w: %d not in 1..%d", ErrBoxOutOfRange, n, e.catalog.TotalBoxes())
	}
	return entry, nil
}

// Resolve binds an entry to its persisted prize type.
func (e *Engine) Resolve(entry catalog.Entry) (*models.PrizeType, error) {
	prizeType, err := e.prizeTypes.FindOrCreate(entry.PrizeType())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prize type %q: %w", entry.Name, err)
	}
	return prizeType, nil
}
