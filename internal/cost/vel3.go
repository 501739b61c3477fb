package cost

import "car-planner/internal/vel3"

// Vel3 prices moves between 3D states by the distance between their
// positions. Transitions follow curves at least as long as their chord, so
// Heur never exceeds the cost of a path.
type Vel3 struct {
	eps float64
}

// NewVel3 creates the distance cost for 3D states.
func NewVel3() *Vel3 { return &Vel3{eps: DefaultEps} }

// Real returns the straight-line distance between a and b.
func (c *Vel3) Real(a, b vel3.State) float64 { return a.Distance(b) }

// Heur returns a lower bound on the cost from a to b.
func (c *Vel3) Heur(a, b vel3.State) float64 { return (1 - c.eps) * c.Real(a, b) }
