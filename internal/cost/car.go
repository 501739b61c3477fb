// Package cost provides the cost and heuristic models for SE(2) motion.
package cost

import (
	"errors"
	"fmt"
	"math"

	"car-planner/internal/se2"
)

// DefaultAC is the default angular cost coefficient.
const DefaultAC = 0.1

// DefaultEps shrinks the heuristic so that rounding never makes it exceed the
// real cost.
const DefaultEps = 1e-6

// ErrInvalidWeights is returned for negative or non-finite weights.
var ErrInvalidWeights = errors.New("invalid cost weights")

// Car computes the cost of moving between two poses using one of two
// metrics:
//
//	distance: ||pa - pb|| + ac*|angle(a, b)|
//	weighted: ||diag(wt) * log(a^-1 b)||
//
// The weighted metric measures the body-frame twist joining a to b, so wt
// weighs turning, driving forward and slipping sideways. It does not depend
// on the heading the move starts from.
//
// Heur is a metric bounded by Real, hence admissible and consistent for any
// edge whose cost is Real between its endpoints.
type Car struct {
	ac       float64
	wt       [3]float64
	weighted bool
	eps      float64
}

// NewCar creates a cost using the distance metric with angular coefficient ac.
func NewCar(ac float64) (*Car, error) {
	if ac < 0 || math.IsNaN(ac) || math.IsInf(ac, 0) {
		return nil, fmt.Errorf("%w: ac=%g", ErrInvalidWeights, ac)
	}
	return &Car{ac: ac, eps: DefaultEps}, nil
}

// NewCarWeighted creates a cost using the weighted per-coordinate metric.
func NewCarWeighted(wt [3]float64) (*Car, error) {
	for _, w := range wt {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: wt=%v", ErrInvalidWeights, wt)
		}
	}
	return &Car{wt: wt, weighted: true, eps: DefaultEps}, nil
}

// Weighted reports whether the weighted metric is in use.
func (c *Car) Weighted() bool { return c.weighted }

// Real returns the cost of moving from a to b.
func (c *Car) Real(a, b se2.Pose) float64 {
	if c.weighted {
		t := Twist(a, b)
		return math.Sqrt(c.wt[0]*c.wt[0]*t.W*t.W + c.wt[1]*c.wt[1]*t.Vx*t.Vx + c.wt[2]*c.wt[2]*t.Vy*t.Vy)
	}
	da := math.Abs(se2.AngleDiff(b.Theta, a.Theta))
	return math.Hypot(b.X-a.X, b.Y-a.Y) + c.ac*da
}

// Heur returns a lower bound on the cost of moving from a to b.
//
// For the weighted metric the twist rotates by the wrapped heading change
// and its translational part is an arc at least as long as the chord, so
// sqrt((wt0*dtheta)^2 + (min(wt1, wt2)*||pa - pb||)^2) never exceeds Real.
func (c *Car) Heur(a, b se2.Pose) float64 {
	if !c.weighted {
		return (1 - c.eps) * c.Real(a, b)
	}
	da := se2.AngleDiff(b.Theta, a.Theta)
	d := math.Min(c.wt[1], c.wt[2]) * math.Hypot(b.X-a.X, b.Y-a.Y)
	return (1 - c.eps) * math.Hypot(c.wt[0]*da, d)
}

// Twist returns the body-frame twist that carries a to b in unit time.
func Twist(a, b se2.Pose) se2.Twist {
	return se2.Log(se2.Q2G(a).Inverse().Mul(se2.Q2G(b)))
}

func (c *Car) String() string {
	if c.weighted {
		return fmt.Sprintf("weighted(wt=%v)", c.wt)
	}
	return fmt.Sprintf("distance(ac=%g)", c.ac)
}
