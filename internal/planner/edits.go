package planner

import (
	"fmt"

	"car-planner/internal/cspace"
	"car-planner/internal/lattice"
	"car-planner/internal/mapio"
)

// CellEdit sets the occupancy of the occupancy map cell containing (X, Y).
type CellEdit struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Occupied bool    `json:"occupied"`
}

// SetOccupied applies occupancy edits and propagates them through the
// configuration map, the grid and the search. It returns the number of
// occupancy cells that changed. Nothing is applied when an edit is out of
// bounds.
func (s *Session) SetOccupied(edits []CellEdit) (int, error) {
	ids := make([]int, 0, len(edits))
	vals := make([]bool, 0, len(edits))
	for _, e := range edits {
		id, err := s.omap.Index([]float64{e.X, e.Y})
		if err != nil {
			return 0, fmt.Errorf("edit (%g, %g): %w", e.X, e.Y, err)
		}
		ids = append(ids, id)
		vals = append(vals, e.Occupied)
	}
	var changed []int
	for i, id := range ids {
		if s.omap.At(id) != vals[i] {
			s.omap.SetAt(id, vals[i])
			changed = append(changed, id)
		}
	}
	s.propagate(changed)
	return len(changed), nil
}

// ApplyOccupancy replaces the occupancy map with next, which must share the
// session map's lattice, and propagates the differences. It returns the
// number of cells that changed.
func (s *Session) ApplyOccupancy(next *lattice.Map[bool]) (int, error) {
	if !s.omap.Lattice.Equal(next.Lattice) {
		return 0, fmt.Errorf("%w: lattice %v..%v at %v", ErrMapMismatch, next.Lower(), next.Upper(), next.CellSize())
	}
	cur := s.omap.Cells()
	var changed []int
	for id, v := range next.Cells() {
		if cur[id] != v {
			cur[id] = v
			changed = append(changed, id)
		}
	}
	s.propagate(changed)
	return len(changed), nil
}

// propagate pushes occupancy changes of the given cells into the obstacle
// index, the configuration map, the grid validity and the search.
func (s *Session) propagate(changed []int) {
	lo, hi, ok := mapio.Bounds(s.omap, changed)
	if !ok {
		return
	}
	if s.obs != nil {
		for _, id := range changed {
			s.obs.Set(id, s.omap.At(id))
		}
	}
	dlo, dhi := cspace.Refresh(s.cmap, s.omap, s.geom, lo, hi)
	cells := s.grid.Covering(dlo, dhi)
	s.grid.Refresh(cells)
	s.search.Notify(cells...)
	s.log.Info("applied occupancy edits", "cells", len(changed), "grid_cells", len(cells))
}
