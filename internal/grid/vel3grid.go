package grid

import (
	"fmt"
	"math"

	"car-planner/internal/lattice"
	"car-planner/internal/vel3"
)

// Vel3Coord addresses a Vel3Grid cell by its integer coordinates.
type Vel3Coord struct {
	X, Y, Z    int
	Yaw, Pitch int
}

// Vel3Grid is the search grid for vehicles in 3D whose direction of travel
// is part of the state: an (x, y, z, yaw, pitch) lattice. Yaw wraps; pitch
// spans [-pi/2, pi/2] with level flight and both verticals on cell centers.
type Vel3Grid struct {
	*Grid[Traversability]
}

// NewVel3Grid creates a grid over the box [lower, upper) with position cell
// sizes cs, numYaws yaw bins and numPitches pitch bins.
func NewVel3Grid(lower, upper, cs [3]float64, numYaws, numPitches int) (*Vel3Grid, error) {
	if numYaws < 1 || numPitches < 2 {
		return nil, fmt.Errorf("%w: %d yaws and %d pitches", lattice.ErrInvalid, numYaws, numPitches)
	}
	ycs := 2 * math.Pi / float64(numYaws)
	pcs := math.Pi / float64(numPitches-1)
	lat, err := lattice.New(
		[]float64{lower[0], lower[1], lower[2], -math.Pi + ycs/2, -math.Pi/2 - pcs/2},
		[]float64{upper[0], upper[1], upper[2], math.Pi + ycs/2, math.Pi/2 + pcs/2},
		[]float64{cs[0], cs[1], cs[2], ycs, pcs},
		lattice.WithWrap(3),
	)
	if err != nil {
		return nil, err
	}
	g := &Vel3Grid{Grid: New[Traversability](lat)}
	for id := range g.data {
		g.data[id] = Free(1)
	}
	return g, nil
}

// Index returns the cell containing s.
func (g *Vel3Grid) Index(s vel3.State) (int, error) {
	id, err := g.lat.Index(s.Vec())
	if err != nil {
		return -1, fmt.Errorf("%w: state (%.3f, %.3f, %.3f, %.3f, %.3f)", ErrOutOfBounds, s.X, s.Y, s.Z, s.Yaw, s.Pitch)
	}
	return id, nil
}

// Center returns the center state of cell id.
func (g *Vel3Grid) Center(id int) vel3.State { return vel3.FromVec(g.lat.Center(id)) }

// Free reports whether cell id may be part of a path.
func (g *Vel3Grid) Free(id int) bool { return g.Valid(id) }

// Factor returns the cost factor for entering cell id.
func (g *Vel3Grid) Factor(id int) float64 {
	c, ok := g.data[id].Cost()
	if !ok {
		return math.Inf(1)
	}
	return c
}

// Coord returns the integer coordinates of cell id.
func (g *Vel3Grid) Coord(id int) Vel3Coord {
	c := g.lat.Unflatten(id)
	return Vel3Coord{X: c[0], Y: c[1], Z: c[2], Yaw: c[3], Pitch: c[4]}
}

// ID returns the cell at c. The yaw coordinate wraps.
func (g *Vel3Grid) ID(c Vel3Coord) (int, error) {
	dims := g.lat.Dims()
	c.Yaw = ((c.Yaw % dims[3]) + dims[3]) % dims[3]
	v := []int{c.X, c.Y, c.Z, c.Yaw, c.Pitch}
	for i, x := range v {
		if x < 0 || x >= dims[i] {
			return -1, fmt.Errorf("%w: cell %v", ErrOutOfBounds, c)
		}
	}
	return g.lat.Flatten(v), nil
}

// NumYaws returns the number of yaw bins.
func (g *Vel3Grid) NumYaws() int { return g.lat.Dims()[3] }

// NumPitches returns the number of pitch bins.
func (g *Vel3Grid) NumPitches() int { return g.lat.Dims()[4] }

// SetCost changes the traversability of cell id and returns the ids whose
// validity or cost changed.
func (g *Vel3Grid) SetCost(id int, t Traversability) []int {
	if id < 0 || id >= g.Len() {
		return nil
	}
	g.set(id, t, !t.IsBlocked())
	return []int{id}
}

// SetPositionCost changes the traversability of every heading at position
// cell (x, y, z) and returns the changed ids.
func (g *Vel3Grid) SetPositionCost(x, y, z int, t Traversability) ([]int, error) {
	var ids []int
	for yaw := 0; yaw < g.NumYaws(); yaw++ {
		for pitch := 0; pitch < g.NumPitches(); pitch++ {
			id, err := g.ID(Vel3Coord{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch})
			if err != nil {
				return nil, err
			}
			ids = append(ids, g.SetCost(id, t)...)
		}
	}
	return ids, nil
}

// PositionCost returns the most restrictive traversability over the
// headings at position cell (x, y, z).
func (g *Vel3Grid) PositionCost(x, y, z int) (Traversability, error) {
	worst := Free(1)
	for yaw := 0; yaw < g.NumYaws(); yaw++ {
		for pitch := 0; pitch < g.NumPitches(); pitch++ {
			id, err := g.ID(Vel3Coord{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch})
			if err != nil {
				return Traversability{}, err
			}
			t := g.data[id]
			if t.IsBlocked() {
				return Blocked, nil
			}
			if c, _ := t.Cost(); c > worst.cost {
				worst = t
			}
		}
	}
	return worst, nil
}
