package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/mystery-box/internal/catalog"
	"github.com/aimd54/mystery-box/internal/models"
)

// fixedSource returns draws in order, wrapping around.
type fixedSource struct {
	draws []int
	calls int
	lastN int
}

func (s *fixedSource) IntN(n int) int {
	s.lastN = n
	d := s.draws[s.calls%len(s.draws)]
	s.calls++
	return d % n
}

type mockPrizeTypeStore struct {
	created map[string]*models.PrizeType
	nextID  uint
	err     error
}

func newMockPrizeTypeStore() *mockPrizeTypeStore {
	return &mockPrizeTypeStore{created: make(map[string]*models.PrizeType)}
}

func (m *mockPrizeTypeStore) FindOrCreate(template *models.PrizeType) (*models.PrizeType, error) {
	if m.err != nil {
		return nil, m.err
	}
	if existing, ok := m.created[template.Name]; ok {
		return existing, nil
	}
	m.nextID++
	pt := *template
	pt.ID = m.nextID
	m.created[pt.Name] = &pt
	return &pt, nil
}

func smallCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Entry{
		{Name: "151 UPC", Value: 10000, Glow: "gold", Count: 1},
		{Name: "151 ETB", Value: 5000, Glow: "gold", Count: 1},
		{Name: "Womp Womp", Value: 0, Glow: "green", Count: 3},
	})
	require.NoError(t, err)
	return c
}

func TestWeight(t *testing.T) {
	tests := []struct {
		value int64
		c     int64
		want  int
	}{
		{0, 1000, 1000},
		{200, 1000, 4},
		{500, 1000, 1},
		{12000, 1000, 1},
		{999, 1000, 1},
		{99, 1000, 10},
		{-5, 1000, 1000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Weight(tt.value, tt.c), "value=%d", tt.value)
	}
}

func TestRandom_DrawsAcrossFlattenedList(t *testing.T) {
	src := &fixedSource{draws: []int{0, 1, 2, 1001}}
	e := NewEngine(smallCatalog(t), 1000, newMockPrizeTypeStore(), WithSource(src))

	// weights: UPC 1, ETB 1, Womp 1000
	assert.Equal(t, "151 UPC", e.Random().Name)
	assert.Equal(t, 1002, src.lastN)
	assert.Equal(t, "151 ETB", e.Random().Name)
	assert.Equal(t, "Womp Womp", e.Random().Name)
	assert.Equal(t, "Womp Womp", e.Random().Name)
}

func TestRandom_NeverLeavesCatalog(t *testing.T) {
	cat := catalog.Default()
	e := NewEngine(cat, DefaultWeightConstant, newMockPrizeTypeStore())

	for i := 0; i < 2000; i++ {
		entry := e.Random()
		_, ok := cat.Lookup(entry.Name)
		require.True(t, ok, "drew %q outside the catalog", entry.Name)
	}
}

func TestRandom_HighValueIsRarer(t *testing.T) {
	cat := catalog.Default()
	src := &fixedSource{draws: []int{0}}
	e := NewEngine(cat, DefaultWeightConstant, newMockPrizeTypeStore(), WithSource(src))
	e.Random()

	// 3 zero-value entries dominate the table.
	zeroValueWeight := 3 * 1000
	assert.Greater(t, src.lastN, zeroValueWeight)
	assert.Less(t, src.lastN, zeroValueWeight+100)
}

func TestByBox(t *testing.T) {
	e := NewEngine(smallCatalog(t), 1000, newMockPrizeTypeStore())

	for i := 0; i < 3; i++ {
		entry, err := e.ByBox(2)
		require.NoError(t, err)
		assert.Equal(t, "151 ETB", entry.Name)
	}

	entry, err := e.ByBox(5)
	require.NoError(t, err)
	assert.Equal(t, "Womp Womp", entry.Name)

	for _, n := range []int{0, 6, -3} {
		_, err := e.ByBox(n)
		assert.True(t, errors.Is(err, ErrBoxOutOfRange), "box %d", n)
	}
}

func TestByName(t *testing.T) {
	e := NewEngine(smallCatalog(t), 1000, newMockPrizeTypeStore())

	known := e.ByName("151 ETB", nil, "")
	assert.Equal(t, int64(5000), known.Value)
	assert.Equal(t, "gold", known.Glow)

	value := int64(2500)
	custom := e.ByName("Signed Poster", &value, "purple")
	assert.Equal(t, int64(2500), custom.Value)
	assert.Equal(t, "purple", custom.Glow)

	bare := e.ByName("Mystery Sticker", nil, "")
	assert.Equal(t, int64(0), bare.Value)
	assert.Equal(t, "green", bare.Glow)
}

func TestResolve(t *testing.T) {
	store := newMockPrizeTypeStore()
	e := NewEngine(smallCatalog(t), 1000, store)

	entry, err := e.ByBox(1)
	require.NoError(t, err)

	first, err := e.Resolve(entry)
	require.NoError(t, err)
	second, err := e.Resolve(entry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.IsActive)

	store.err = errors.New("db down")
	_, err = e.Resolve(entry)
	assert.Error(t, err)
}
