package grid

import (
	"fmt"
	"math"

	"car-planner/internal/lattice"
)

// TerrainData describes the surface under a cell. A NaN traversability marks
// the cell as occupied; otherwise distance times traversability is the loss
// of moving across it.
type TerrainData struct {
	Traversability float64 `json:"traversability"`
}

// Occupied reports whether the terrain cannot be crossed.
func (t TerrainData) Occupied() bool { return math.IsNaN(t.Traversability) }

// NewTerrainSE2Grid creates an SE(2) grid over cmap whose cell costs come
// from a 2D (x, y) terrain map sampled at each coarse cell center.
func NewTerrainSE2Grid(cmap *lattice.Map[bool], tmap *lattice.Map[TerrainData], gcs [3]float64) (*SE2Grid, error) {
	if tmap.Dim() != 2 {
		return nil, fmt.Errorf("terrain map has %d dimensions, want 2", tmap.Dim())
	}
	g, err := NewSE2Grid(cmap, gcs)
	if err != nil {
		return nil, err
	}
	for id := 0; id < g.Len(); id++ {
		c := g.Center(id)
		td, err := tmap.Get([]float64{c.X, c.Y})
		if err != nil || td.Occupied() {
			g.SetCost(id, Blocked)
			continue
		}
		g.SetCost(id, Free(td.Traversability))
	}
	return g, nil
}
