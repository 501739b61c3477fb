package search_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-planner/internal/connectivity"
	"car-planner/internal/cost"
	"car-planner/internal/cspace"
	"car-planner/internal/grid"
	"car-planner/internal/lattice"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

type carWorld struct {
	omap *lattice.Map[bool]
	cmap *lattice.Map[bool]
	grid *grid.SE2Grid
	cost *cost.Car
	conn *connectivity.Car
}

func newCarWorld(t *testing.T, size float64, occupied func(x, y float64) bool) *carWorld {
	t.Helper()
	omap, err := lattice.NewMap[bool]([]float64{0, 0}, []float64{size, size}, []float64{0.1, 0.1})
	require.NoError(t, err)
	if occupied != nil {
		for id := range omap.Cells() {
			c := omap.Center(id)
			omap.SetAt(id, occupied(c[0], c[1]))
		}
	}
	cmap, err := cspace.Build(context.Background(), omap, math.Pi/8, nil, 1)
	require.NoError(t, err)
	g, err := grid.NewSE2Grid(cmap, [3]float64{math.Pi / 8, 0.5, 0.5})
	require.NoError(t, err)
	c, err := cost.NewCar(cost.DefaultAC)
	require.NoError(t, err)
	return &carWorld{omap: omap, cmap: cmap, grid: g, cost: c, conn: connectivity.NewCar(g, c)}
}

func (w *carWorld) search(opts ...search.Option) *search.Search[se2.Pose] {
	return search.New[se2.Pose](w.grid, w.conn, w.cost, opts...)
}

// occupy marks the xy box occupied in both maps and returns the coarse
// cells whose validity may have changed.
func (w *carWorld) occupy(lo, hi [2]float64) []int {
	for id := range w.omap.Cells() {
		c := w.omap.Center(id)
		if c[0] >= lo[0] && c[0] <= hi[0] && c[1] >= lo[1] && c[1] <= hi[1] {
			w.omap.SetAt(id, true)
		}
	}
	dlo, dhi := cspace.Refresh(w.cmap, w.omap, nil, lo, hi)
	ids := w.grid.Covering(dlo, dhi)
	w.grid.Refresh(ids)
	return ids
}

func TestScenarioFreeSpace(t *testing.T) {
	w := newCarWorld(t, 10, nil)
	s := w.search()
	start := se2.Pose{Theta: 0, X: 1, Y: 1}
	goal := se2.Pose{Theta: 0, X: 8, Y: 8}
	require.NoError(t, s.SetStart(start))
	require.NoError(t, s.SetGoal(goal))

	path, err := s.Plan()
	require.NoError(t, err)
	require.False(t, path.Empty())

	first, last := path.Cells[0], path.Cells[len(path.Cells)-1]
	assert.InDelta(t, start.X, first.X, 0.5)
	assert.InDelta(t, start.Y, first.Y, 0.5)
	assert.InDelta(t, goal.X, last.X, 0.5)
	assert.InDelta(t, goal.Y, last.Y, 0.5)
	assert.InDelta(t, 0, se2.AngleDiff(last.Theta, goal.Theta), math.Pi/8)

	euclid := math.Hypot(goal.X-start.X, goal.Y-start.Y)
	assert.GreaterOrEqual(t, path.Cost, w.cost.Heur(first, last))
	assert.LessOrEqual(t, path.Cost, 1.25*euclid)
	assert.Len(t, path.Connections, len(path.Cells)-1)
	for i, conn := range path.Connections {
		require.NotEmpty(t, conn)
		assert.Equal(t, path.Cells[i], conn[0])
	}
}

func TestScenarioFullyOccupied(t *testing.T) {
	w := newCarWorld(t, 10, func(x, y float64) bool { return true })
	s := w.search()
	assert.ErrorIs(t, s.SetStart(se2.Pose{X: 1, Y: 1}), search.ErrOccupied)
	assert.ErrorIs(t, s.SetGoal(se2.Pose{X: 8, Y: 8}), search.ErrOccupied)
	path, err := s.Plan()
	assert.ErrorIs(t, err, search.ErrNoStart)
	assert.True(t, path.Empty())
}

func TestScenarioOutOfBounds(t *testing.T) {
	w := newCarWorld(t, 4, nil)
	s := w.search()
	assert.ErrorIs(t, s.SetStart(se2.Pose{X: -1, Y: 1}), search.ErrOutOfBounds)
	assert.ErrorIs(t, s.SetGoal(se2.Pose{X: 1, Y: 40}), search.ErrOutOfBounds)
	assert.ErrorIs(t, s.SetStart(se2.Pose{Theta: math.NaN(), X: 1, Y: 1}), search.ErrOutOfBounds)
	assert.ErrorIs(t, s.SetGoal(se2.Pose{Theta: math.Inf(1), X: 2, Y: 2}), search.ErrOutOfBounds)
}

// exactCosts runs Dijkstra backwards from goal over every transition the
// connectivity generates.
func exactCosts(w *carWorld, goal int) []float64 {
	n := w.grid.Len()
	type in struct {
		from int
		cost float64
	}
	preds := make([][]in, n)
	for id := 0; id < n; id++ {
		if !w.grid.Free(id) {
			continue
		}
		trans, _ := w.conn.Successors(id)
		for _, tr := range trans {
			preds[tr.To] = append(preds[tr.To], in{id, tr.Cost})
		}
	}
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[goal] = 0
	done := make([]bool, n)
	for {
		u, best := -1, math.Inf(1)
		for i, d := range dist {
			if !done[i] && d < best {
				u, best = i, d
			}
		}
		if u < 0 {
			return dist
		}
		done[u] = true
		for _, p := range preds[u] {
			if d := dist[u] + p.cost; d < dist[p.from] {
				dist[p.from] = d
			}
		}
	}
}

func TestCarHeuristicAdmissible(t *testing.T) {
	w := newCarWorld(t, 4, func(x, y float64) bool { return x > 1.5 && x < 2 && y < 2.5 })
	goal, err := w.grid.Index(se2.Pose{X: 3.2, Y: 1.1})
	require.NoError(t, err)
	require.True(t, w.grid.Free(goal))
	exact := exactCosts(w, goal)

	reached := 0
	for id := 0; id < w.grid.Len(); id++ {
		if math.IsInf(exact[id], 1) {
			continue
		}
		reached++
		assert.LessOrEqual(t, w.cost.Heur(w.grid.Center(id), w.grid.Center(goal)), exact[id]+1e-9)
	}
	assert.Greater(t, reached, 1)

	start, err := w.grid.Index(se2.Pose{X: 0.7, Y: 1.1})
	require.NoError(t, err)
	s := w.search()
	require.NoError(t, s.SetStart(w.grid.Center(start)))
	require.NoError(t, s.SetGoal(w.grid.Center(goal)))
	path, err := s.Plan()
	if math.IsInf(exact[start], 1) {
		assert.ErrorIs(t, err, search.ErrUnreachable)
		return
	}
	require.NoError(t, err)
	assert.InDelta(t, exact[start], path.Cost, 1e-6)
}

func TestCarOccupancyExclusion(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 4; trial++ {
		var boxes [][4]float64
		for range 4 {
			x, y := rng.Float64()*5, rng.Float64()*5
			boxes = append(boxes, [4]float64{x, y, x + 0.3 + rng.Float64(), y + 0.3 + rng.Float64()})
		}
		w := newCarWorld(t, 6, func(x, y float64) bool {
			for _, b := range boxes {
				if x >= b[0] && x <= b[2] && y >= b[1] && y <= b[3] {
					return true
				}
			}
			return false
		})
		s := w.search()
		if s.SetStart(se2.Pose{X: 0.3, Y: 0.3}) != nil || s.SetGoal(se2.Pose{X: 5.7, Y: 5.7}) != nil {
			continue
		}
		path, err := s.Plan()
		if err != nil {
			assert.ErrorIs(t, err, search.ErrUnreachable)
			continue
		}
		for _, id := range path.Indices {
			assert.True(t, w.grid.Free(id))
		}
		for _, conn := range path.Connections {
			for _, p := range conn {
				assert.False(t, w.grid.Occupied(p), "sample %+v is occupied", p)
			}
		}
	}
}

func TestCarIncrementalEdits(t *testing.T) {
	w := newCarWorld(t, 8, nil)
	s := w.search()
	start := se2.Pose{X: 1, Y: 4}
	goal := se2.Pose{X: 7, Y: 4}
	require.NoError(t, s.SetStart(start))
	require.NoError(t, s.SetGoal(goal))
	before, err := s.Plan()
	require.NoError(t, err)

	// a wall across the direct route with a gap at the top
	s.Notify(w.occupy([2]float64{3.5, 0}, [2]float64{4, 5.2})...)
	after, err := s.Plan()
	require.NoError(t, err)
	assert.Greater(t, after.Cost, before.Cost)

	fresh := w.search()
	require.NoError(t, fresh.SetStart(start))
	require.NoError(t, fresh.SetGoal(goal))
	want, err := fresh.Plan()
	require.NoError(t, err)
	assert.InDelta(t, want.Cost, after.Cost, 1e-6)
	for _, id := range after.Indices {
		assert.True(t, w.grid.Free(id))
	}

	// raising the cost of cells on the new route
	for _, id := range after.Indices[1 : len(after.Indices)-1] {
		require.NoError(t, s.SetCost(w.grid.Center(id), grid.Free(2)))
	}
	again, err := s.Plan()
	require.NoError(t, err)
	fresh = w.search()
	require.NoError(t, fresh.SetStart(start))
	require.NoError(t, fresh.SetGoal(goal))
	want, err = fresh.Plan()
	require.NoError(t, err)
	assert.InDelta(t, want.Cost, again.Cost, 1e-6)
}

func TestCarInitExpandMatchesLazy(t *testing.T) {
	w := newCarWorld(t, 4, nil)
	eager := w.search(search.WithInitExpand(true))
	lazy := w.search()
	assert.Greater(t, eager.Vertices(), lazy.Vertices())
	for _, s := range []*search.Search[se2.Pose]{eager, lazy} {
		require.NoError(t, s.SetStart(se2.Pose{X: 1, Y: 1}))
		require.NoError(t, s.SetGoal(se2.Pose{X: 3, Y: 3}))
	}
	pe, err := eager.Plan()
	require.NoError(t, err)
	pl, err := lazy.Plan()
	require.NoError(t, err)
	assert.InDelta(t, pe.Cost, pl.Cost, 1e-9)
	assert.Len(t, eager.Segments(), eager.Edges())
}
