package planner

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-planner/internal/config"
	"car-planner/internal/lattice"
	"car-planner/internal/mapio"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

// writeMap writes a size x size meter PNG map at 0.1 m per pixel.
func writeMap(t *testing.T, dir string, size float64, occupied func(x, y float64) bool) string {
	t.Helper()
	m, err := lattice.NewMap[bool]([]float64{0, 0}, []float64{size, size}, []float64{0.1, 0.1})
	require.NoError(t, err)
	if occupied != nil {
		for id := range m.Cells() {
			c := m.Center(id)
			m.SetAt(id, occupied(c[0], c[1]))
		}
	}
	path := filepath.Join(dir, "map.png")
	require.NoError(t, mapio.SaveOccupancy(path, m))
	return path
}

func params(mapPath string) *config.Params {
	p := config.Default()
	p.Map = mapPath
	p.Start = []float64{0, 1, 1}
	p.Goal = []float64{0, 5, 5}
	return p
}

func TestOpenAndPlan(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 6, nil))
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, []int{16, 12, 12}, s.Grid().Lattice().Dims())
	assert.FileExists(t, CMapPath(p.Map))

	path, err := s.Plan(context.Background())
	require.NoError(t, err)
	assert.False(t, path.Empty())
	assert.Equal(t, path.Cost, s.Path().Cost)

	files, err := s.Render(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.FileExists(t, f)
	}
}

func TestOpenMissingMap(t *testing.T) {
	p := config.Default()
	_, err := Open(context.Background(), p)
	assert.ErrorIs(t, err, config.ErrMissingParameter)

	p.Map = filepath.Join(t.TempDir(), "nope.png")
	_, err = Open(context.Background(), p)
	assert.ErrorIs(t, err, mapio.ErrLoad)
}

func TestOpenWithCachedCMap(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 4, func(x, y float64) bool { return x > 2 && x < 2.5 }))
	first, err := Open(context.Background(), p)
	require.NoError(t, err)

	q := params(p.Map)
	q.CMap = CMapPath(p.Map)
	second, err := Open(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first.CMap().Cells(), second.CMap().Cells())
	assert.True(t, first.CMap().Lattice.Equal(second.CMap().Lattice))

	// a cmap from a different map is rejected
	other := filepath.Join(dir, "other")
	require.NoError(t, os.MkdirAll(other, 0o755))
	r := params(writeMap(t, other, 5, nil))
	r.CMap = CMapPath(p.Map)
	_, err = Open(context.Background(), r)
	assert.ErrorIs(t, err, ErrMapMismatch)
}

func TestRouteFailures(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 4, func(x, y float64) bool { return x < 1.5 && y < 1.5 }))
	s, err := Open(context.Background(), p)
	require.NoError(t, err)

	err = s.Route(se2.Pose{X: 1, Y: 1}, se2.Pose{X: 30, Y: 3})
	assert.ErrorIs(t, err, search.ErrOccupied)
	assert.ErrorIs(t, err, search.ErrOutOfBounds)
	_, err = s.Plan(context.Background())
	assert.ErrorIs(t, err, search.ErrNoStart)

	// markers are still drawn
	files, err := s.Render(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestSetOccupied(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 8, nil))
	p.Start = []float64{0, 1, 3}
	p.Goal = []float64{0, 7, 3}
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	before, err := s.Plan(context.Background())
	require.NoError(t, err)

	var edits []CellEdit
	// a wall across the direct route, open above y = 4.2
	for y := 0.05; y < 4.2; y += 0.1 {
		for x := 3.95; x < 4.5; x += 0.1 {
			edits = append(edits, CellEdit{X: x, Y: y, Occupied: true})
		}
	}
	n, err := s.SetOccupied(edits)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	after, err := s.Plan(context.Background())
	require.NoError(t, err)
	assert.Greater(t, after.Cost, before.Cost)
	for _, c := range after.Cells {
		assert.False(t, s.Grid().Occupied(c))
	}

	// repeating the same edits changes nothing
	n, err = s.SetOccupied(edits)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.SetOccupied([]CellEdit{{X: -1, Y: 0, Occupied: true}})
	assert.ErrorIs(t, err, lattice.ErrOutOfBounds)

	// clearing the wall restores the original cost
	for i := range edits {
		edits[i].Occupied = false
	}
	_, err = s.SetOccupied(edits)
	require.NoError(t, err)
	again, err := s.Plan(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, before.Cost, again.Cost, 1e-6)
}

func TestApplyOccupancy(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 6, nil))
	p.Geom = []float64{0.6, 0.3, 0.1, 0}
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	_, err = s.Plan(context.Background())
	require.NoError(t, err)

	next := s.OMap().Clone()
	require.NoError(t, next.Set([]float64{3.05, 3.05}, true))
	require.NoError(t, next.Set([]float64{3.15, 3.05}, true))
	n, err := s.ApplyOccupancy(next)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	occ, err := s.CMap().Get([]float64{0, 3.05, 3.05})
	require.NoError(t, err)
	assert.True(t, occ)

	path, err := s.Plan(context.Background())
	require.NoError(t, err)
	for _, conn := range path.Connections {
		for _, q := range conn {
			assert.False(t, s.Grid().Occupied(q))
		}
	}

	small, err := lattice.NewMap[bool]([]float64{0, 0}, []float64{1, 1}, []float64{0.1, 0.1})
	require.NoError(t, err)
	_, err = s.ApplyOccupancy(small)
	assert.ErrorIs(t, err, ErrMapMismatch)

	name, err := s.SaveCMap()
	require.NoError(t, err)
	back, err := lattice.LoadFile(name, 3, lattice.WithWrap(0))
	require.NoError(t, err)
	assert.Equal(t, s.CMap().Cells(), back.Cells())
}

func TestPrimitives(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), params(writeMap(t, dir, 4, nil)))
	require.NoError(t, err)
	prims, err := s.Primitives(se2.Pose{X: 2, Y: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, prims)
}

// writeTerrain writes a size x size meter terrain PNG at 0.1 m per pixel.
func writeTerrain(t *testing.T, dir string, size float64, luma func(x, y float64) uint8) string {
	t.Helper()
	n := int(size * 10)
	img := image.NewGray(image.Rect(0, 0, n, n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x, y := (float64(i)+0.5)/10, (float64(n-1-j)+0.5)/10
			img.SetGray(i, j, color.Gray{Y: luma(x, y)})
		}
	}
	path := filepath.Join(dir, "terrain.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestOpenWithTerrain(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 8, nil))
	p.Start = []float64{0, 1, 1}
	p.Goal = []float64{0, 7, 1}
	plain, err := Open(context.Background(), p)
	require.NoError(t, err)
	direct, err := plain.Plan(context.Background())
	require.NoError(t, err)

	p.TMap = writeTerrain(t, dir, 8, func(x, y float64) uint8 {
		switch {
		case x >= 3.5 && x < 4.5 && y < 4:
			return 0
		case x < 1 && y > 7:
			return 85
		}
		return 255
	})
	s, err := Open(context.Background(), p)
	require.NoError(t, err)

	wall, err := s.Grid().Index(se2.Pose{X: 4, Y: 1})
	require.NoError(t, err)
	assert.False(t, s.Grid().Free(wall))
	rough, err := s.Grid().Index(se2.Pose{X: 0.25, Y: 7.75})
	require.NoError(t, err)
	assert.InDelta(t, 3, s.Grid().Factor(rough), 1e-9)

	path, err := s.Plan(context.Background())
	require.NoError(t, err)
	assert.Greater(t, path.Cost, direct.Cost)
	for _, c := range path.Cells {
		assert.False(t, c.X > 3.5 && c.X < 4.5 && c.Y < 4, "path crosses the wall at %v", c)
	}

	p.TMap = filepath.Join(dir, "missing.png")
	_, err = Open(context.Background(), p)
	assert.ErrorIs(t, err, mapio.ErrLoad)
}

func TestOpenAllowSlip(t *testing.T) {
	dir := t.TempDir()
	p := params(writeMap(t, dir, 4, nil))
	p.AllowSlip = true
	s, err := Open(context.Background(), p)
	require.NoError(t, err)
	slips := 0
	for _, prim := range s.Connectivity().Primitives() {
		if prim.Slip {
			slips++
		}
	}
	assert.Equal(t, 2, slips)
}
