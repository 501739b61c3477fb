// Package grid binds cell lattices to the discrete vertex identities a
// search runs over.
package grid

import (
	"errors"
	"fmt"

	"car-planner/internal/lattice"
)

// ErrOutOfBounds is returned for points or ids outside the grid.
var ErrOutOfBounds = errors.New("out of range")

// Traversability is the cost of entering a cell, or a blocked marker.
type Traversability struct {
	cost    float64
	blocked bool
}

// Blocked marks a cell as untraversable.
var Blocked = Traversability{blocked: true}

// Free returns a traversable cell with the given cost factor. Factors below 1
// are raised to 1 so that distance heuristics stay admissible.
func Free(cost float64) Traversability {
	if !(cost >= 1) {
		cost = 1
	}
	return Traversability{cost: cost}
}

// IsBlocked reports whether the cell cannot be entered.
func (t Traversability) IsBlocked() bool { return t.blocked }

// Cost returns the cost factor and whether the cell is traversable.
func (t Traversability) Cost() (float64, bool) {
	if t.blocked {
		return 0, false
	}
	if t.cost == 0 {
		return 1, true
	}
	return t.cost, true
}

func (t Traversability) String() string {
	if t.blocked {
		return "blocked"
	}
	c, _ := t.Cost()
	return fmt.Sprintf("free(%g)", c)
}

// Cell is an immutable view of one grid cell.
type Cell[D any] struct {
	Index  int
	Center []float64
	Data   D
}

// Grid is a lattice with one payload and one validity bit per cell.
type Grid[D any] struct {
	lat   *lattice.Lattice
	data  []D
	valid []bool
}

// New creates a grid over lat with every cell valid.
func New[D any](lat *lattice.Lattice) *Grid[D] {
	g := &Grid[D]{
		lat:   lat,
		data:  make([]D, lat.Len()),
		valid: make([]bool, lat.Len()),
	}
	for i := range g.valid {
		g.valid[i] = true
	}
	return g
}

// Lattice returns the cell lattice.
func (g *Grid[D]) Lattice() *lattice.Lattice { return g.lat }

// Len returns the number of cells.
func (g *Grid[D]) Len() int { return g.lat.Len() }

// Valid reports whether cell id exists and may be visited.
func (g *Grid[D]) Valid(id int) bool {
	return id >= 0 && id < len(g.valid) && g.valid[id]
}

// Cell returns cell id.
func (g *Grid[D]) Cell(id int) (Cell[D], error) {
	if id < 0 || id >= len(g.data) {
		return Cell[D]{}, fmt.Errorf("%w: cell %d", ErrOutOfBounds, id)
	}
	return Cell[D]{Index: id, Center: g.lat.Center(id), Data: g.data[id]}, nil
}

// Data returns the payload of cell id.
func (g *Grid[D]) Data(id int) D { return g.data[id] }

func (g *Grid[D]) set(id int, d D, valid bool) {
	g.data[id] = d
	g.valid[id] = valid
}
