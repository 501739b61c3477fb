package grid

import (
	"fmt"
	"math"

	"car-planner/internal/lattice"
	"car-planner/internal/se2"
)

// SE2Grid is the search grid for car-like vehicles: a coarse (angle, x, y)
// lattice over a finer configuration-space occupancy map. The map is
// borrowed; its owner must keep it alive for the lifetime of the grid.
type SE2Grid struct {
	*Grid[Traversability]
	cmap *lattice.Map[bool]
}

// NewSE2Grid creates a grid with cell sizes gcs over cmap. The angular cell
// size is adjusted so that a whole number of cells spans 2*pi.
func NewSE2Grid(cmap *lattice.Map[bool], gcs [3]float64) (*SE2Grid, error) {
	if cmap.Dim() != 3 {
		return nil, fmt.Errorf("configuration map has %d dimensions, want 3", cmap.Dim())
	}
	n := math.Max(1, math.Round(2*math.Pi/gcs[0]))
	cs := []float64{2 * math.Pi / n, gcs[1], gcs[2]}
	lat, err := lattice.New(cmap.Lower(), cmap.Upper(), cs, lattice.WithWrap(0))
	if err != nil {
		return nil, err
	}
	g := &SE2Grid{Grid: New[Traversability](lat), cmap: cmap}
	for id := 0; id < lat.Len(); id++ {
		g.data[id] = Free(1)
	}
	g.Refresh(nil)
	return g, nil
}

// CMap returns the underlying configuration map.
func (g *SE2Grid) CMap() *lattice.Map[bool] { return g.cmap }

// Index returns the id of the cell owning pose p.
func (g *SE2Grid) Index(p se2.Pose) (int, error) {
	id, err := g.lat.Index(p.Vec())
	if err != nil {
		return -1, fmt.Errorf("%w: pose (%.3f, %.3f, %.3f)", ErrOutOfBounds, p.Theta, p.X, p.Y)
	}
	return id, nil
}

// Center returns the center pose of cell id.
func (g *SE2Grid) Center(id int) se2.Pose {
	return se2.FromVec(g.lat.Center(id))
}

// Free reports whether cell id may be part of a path.
func (g *SE2Grid) Free(id int) bool { return g.Valid(id) }

// Factor returns the cost factor for entering cell id, 1 for plain cells.
func (g *SE2Grid) Factor(id int) float64 {
	c, ok := g.data[id].Cost()
	if !ok {
		return math.Inf(1)
	}
	return c
}

// Occupied reports whether pose p falls on an occupied or out-of-map cell of
// the configuration map.
func (g *SE2Grid) Occupied(p se2.Pose) bool {
	occ, err := g.cmap.Get(p.Vec())
	return err != nil || occ
}

// SetCost changes the traversability of cell id and returns the ids whose
// validity or cost changed.
func (g *SE2Grid) SetCost(id int, t Traversability) []int {
	if id < 0 || id >= g.Len() {
		return nil
	}
	g.data[id] = t
	g.valid[id] = !t.IsBlocked() && !g.Occupied(g.Center(id))
	return []int{id}
}

// Refresh re-derives validity of the given cells from the configuration map
// after it was edited. A nil slice refreshes every cell.
func (g *SE2Grid) Refresh(ids []int) {
	update := func(id int) {
		g.valid[id] = !g.data[id].IsBlocked() && !g.Occupied(g.Center(id))
	}
	if ids == nil {
		for id := 0; id < g.Len(); id++ {
			update(id)
		}
		return
	}
	for _, id := range ids {
		if id >= 0 && id < g.Len() {
			update(id)
		}
	}
}

// Covering returns the coarse cells overlapping the xy box [lo, hi], over
// all headings.
func (g *SE2Grid) Covering(lo, hi [2]float64) []int {
	ub := g.lat.Upper()
	lb := g.lat.Lower()
	return g.lat.Overlapping(
		[]float64{lb[0], lo[0], lo[1]},
		[]float64{ub[0] - g.lat.CellSize()[0]/2, hi[0], hi[1]},
	)
}
