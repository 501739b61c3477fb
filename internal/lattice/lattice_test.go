package lattice

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDims(t *testing.T) {
	l, err := New([]float64{0, 0}, []float64{10, 5}, []float64{0.1, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 10}, l.Dims())
	assert.Equal(t, 1000, l.Len())
}

func TestNewInvalid(t *testing.T) {
	_, err := New([]float64{0}, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = New([]float64{0}, []float64{1}, []float64{0})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestIndexAndCenter(t *testing.T) {
	l, err := New([]float64{0, 0}, []float64{10, 10}, []float64{0.5, 0.5})
	require.NoError(t, err)

	id, err := l.Index([]float64{1.2, 3.9})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 7}, l.Unflatten(id))
	c := l.Center(id)
	assert.InDelta(t, 1.25, c[0], 1e-12)
	assert.InDelta(t, 3.75, c[1], 1e-12)

	_, err = l.Index([]float64{-0.1, 1})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = l.Index([]float64{1, 10})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.False(t, l.Contains([]float64{11, 0}))
}

func TestWrappedAxis(t *testing.T) {
	cs := 2 * math.Pi / 16
	l, err := New([]float64{-math.Pi + cs/2}, []float64{math.Pi + cs/2}, []float64{cs}, WithWrap(0))
	require.NoError(t, err)
	require.Equal(t, 16, l.Len())

	a, err := l.Index([]float64{0.1})
	require.NoError(t, err)
	b, err := l.Index([]float64{0.1 + 2*math.Pi})
	require.NoError(t, err)
	c, err := l.Index([]float64{0.1 - 4*math.Pi})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)

	// -pi and +pi land in the same cell
	p, err := l.Index([]float64{math.Pi})
	require.NoError(t, err)
	m, err := l.Index([]float64{-math.Pi})
	require.NoError(t, err)
	assert.Equal(t, p, m)
}

func TestNonFiniteRejected(t *testing.T) {
	cs := 2 * math.Pi / 16
	l, err := New(
		[]float64{-math.Pi + cs/2, 0},
		[]float64{math.Pi + cs/2, 4},
		[]float64{cs, 1},
		WithWrap(0),
	)
	require.NoError(t, err)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := l.Index([]float64{v, 1})
		assert.ErrorIs(t, err, ErrOutOfBounds, "wrapped axis %g", v)
		_, err = l.Index([]float64{0, v})
		assert.ErrorIs(t, err, ErrOutOfBounds, "bounded axis %g", v)
		assert.False(t, l.Contains([]float64{v, v}))
	}
}

func TestOverlapping(t *testing.T) {
	l, err := New([]float64{0, 0}, []float64{4, 4}, []float64{1, 1})
	require.NoError(t, err)
	ids := l.Overlapping([]float64{0.5, 0.5}, []float64{1.5, 1.5})
	assert.ElementsMatch(t, []int{0, 1, 4, 5}, ids)

	// clipped at the border
	ids = l.Overlapping([]float64{-3, 3.2}, []float64{0.2, 9})
	assert.ElementsMatch(t, []int{3}, ids)

	w, err := New([]float64{0}, []float64{4}, []float64{1}, WithWrap(0))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 0}, w.Overlapping([]float64{3.5}, []float64{4.5}))
}

func TestMapGetSet(t *testing.T) {
	m, err := NewMap[int]([]float64{0, 0}, []float64{2, 2}, []float64{1, 1})
	require.NoError(t, err)
	require.NoError(t, m.Set([]float64{1.5, 0.5}, 7))
	v, err := m.Get([]float64{1.1, 0.9})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 7, m.At(2))

	c := m.Clone()
	c.SetAt(2, 1)
	assert.Equal(t, 7, m.At(2))
	assert.ErrorIs(t, m.Set([]float64{3, 0}, 1), ErrOutOfBounds)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cs := 2 * math.Pi / 8
	m, err := NewMap[bool](
		[]float64{-math.Pi + cs/2, 0, -1},
		[]float64{math.Pi + cs/2, 3, 2},
		[]float64{cs, 0.1, 0.25},
		WithWrap(0),
	)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	for i := range m.Cells() {
		m.SetAt(i, rng.Intn(3) == 0)
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m))
	assert.Equal(t, 9*8+m.Len(), buf.Len())

	got, err := Load(bytes.NewReader(buf.Bytes()), 3, WithWrap(0))
	require.NoError(t, err)
	assert.True(t, got.Equal(m.Lattice))
	assert.Equal(t, m.Lower(), got.Lower())
	assert.Equal(t, m.Upper(), got.Upper())
	assert.Equal(t, m.CellSize(), got.CellSize())
	assert.Equal(t, m.Cells(), got.Cells())
}

func TestLoadCorrupt(t *testing.T) {
	m, err := NewMap[bool]([]float64{0, 0}, []float64{2, 2}, []float64{1, 1})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m))

	_, err = Load(bytes.NewReader(buf.Bytes()[:buf.Len()-1]), 2)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Load(bytes.NewReader(append(buf.Bytes(), 0)), 2)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Load(bytes.NewReader(buf.Bytes()[:10]), 2)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveLoadFile(t *testing.T) {
	m, err := NewMap[bool]([]float64{0, 0}, []float64{1, 1}, []float64{0.5, 0.5})
	require.NoError(t, err)
	m.SetAt(3, true)
	path := filepath.Join(t.TempDir(), "map.cmap")
	require.NoError(t, SaveFile(path, m))
	got, err := LoadFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, m.Cells(), got.Cells())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cmap"), 2)
	assert.Error(t, err)
}
