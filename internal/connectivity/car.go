// Package connectivity generates the motion primitives of a car-like
// vehicle and turns them into collision-checked transitions between SE(2)
// grid cells.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"car-planner/internal/grid"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

// Default primitive parameters.
const (
	DefaultDT      = 0.25
	DefaultVX      = 4.0
	DefaultKMax    = 0.57
	DefaultKSeg    = 4
	DefaultOnlyFwd = false
	DefaultSlip    = false
)

// ErrInvalidPrimitiveConfig is returned by SetPrimitives for unusable
// parameters.
var ErrInvalidPrimitiveConfig = errors.New("invalid primitive configuration")

// Cost prices the move between two poses.
type Cost interface {
	Real(a, b se2.Pose) float64
}

// Collider tests a vehicle footprint at a pose.
type Collider interface {
	Collides(p se2.Pose) bool
}

// Primitive is a constant-curvature motion template: following Twist for
// unit time from any pose yields the relative motion of the primitive.
type Primitive struct {
	Curvature float64
	Reverse   bool
	// Slip marks a sideways move with no heading change.
	Slip      bool
	Twist     se2.Twist
}

// Candidate is an accepted primitive instantiated at a cell.
type Candidate struct {
	To        int
	Cost      float64
	Poses     []se2.Pose
	Primitive Primitive
}

// Option configures a Car.
type Option func(*Car)

// WithFootprint enables swept footprint checks against obstacles in addition
// to the configuration map lookup.
func WithFootprint(c Collider) Option {
	return func(car *Car) { car.footprint = c }
}

// WithSlip adds sideways primitives, left and right at the primitive speed,
// for vehicles that can crab.
func WithSlip(on bool) Option {
	return func(car *Car) { car.slip = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(car *Car) {
		if l != nil {
			car.log = l
		}
	}
}

// Car is the connectivity of a car-like vehicle on an SE2Grid.
type Car struct {
	grid      *grid.SE2Grid
	cost      Cost
	footprint Collider
	log       *slog.Logger

	dt, v, kmax float64
	kseg        int
	onlyfwd     bool
	slip        bool
	prims       []Primitive

	// fine sampling resolution along position and heading
	dl, da float64
}

// NewCar creates a connectivity with the default primitive set.
func NewCar(g *grid.SE2Grid, cost Cost, opts ...Option) *Car {
	cs := g.CMap().CellSize()
	c := &Car{
		grid: g,
		cost: cost,
		log:  slog.New(slog.DiscardHandler),
		dl:   math.Min(cs[1], cs[2]),
		da:   cs[0],
	}
	for _, opt := range opts {
		opt(c)
	}
	c.build(DefaultDT, DefaultVX, DefaultKMax, DefaultKSeg, DefaultOnlyFwd)
	return c
}

// linspace returns n values evenly spaced on [lo, hi].
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// SetPrimitives rebuilds the primitive templates: arcs of duration dt at
// speed v with curvatures spread evenly over [-kmax, kmax]. Without onlyfwd
// there are 2*kseg+1 curvatures, each with a reverse twin; with onlyfwd
// there are kseg+1 forward arcs. The straight primitive is always present.
// With slip enabled two sideways primitives are added.
func (c *Car) SetPrimitives(dt, v, kmax float64, kseg int, onlyfwd bool) error {
	switch {
	case !(dt > 0):
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidPrimitiveConfig, dt)
	case !(v > 0):
		return fmt.Errorf("%w: vx must be positive, got %g", ErrInvalidPrimitiveConfig, v)
	case !(kmax > 0):
		return fmt.Errorf("%w: kmax must be positive, got %g", ErrInvalidPrimitiveConfig, kmax)
	case kseg <= 0:
		return fmt.Errorf("%w: kseg must be positive, got %d", ErrInvalidPrimitiveConfig, kseg)
	}
	c.build(dt, v, kmax, kseg, onlyfwd)
	return nil
}

// build replaces the templates with validated parameters.
func (c *Car) build(dt, v, kmax float64, kseg int, onlyfwd bool) {
	n := 2*kseg + 1
	if onlyfwd {
		n = kseg + 1
	}
	ks := linspace(-kmax, kmax, n)
	hasZero := false
	for _, k := range ks {
		if math.Abs(k) < 1e-12 {
			hasZero = true
		}
	}
	if !hasZero {
		ks = append(ks, 0)
	}

	prims := make([]Primitive, 0, 2*len(ks))
	for _, k := range ks {
		if math.Abs(k) < 1e-12 {
			k = 0
		}
		prims = append(prims, Primitive{
			Curvature: k,
			Twist:     se2.Twist{W: k * v * dt, Vx: v * dt},
		})
		if !onlyfwd {
			prims = append(prims, Primitive{
				Curvature: k,
				Reverse:   true,
				Twist:     se2.Twist{W: -k * v * dt, Vx: -v * dt},
			})
		}
	}
	if c.slip {
		for _, dir := range []float64{1, -1} {
			prims = append(prims, Primitive{Slip: true, Twist: se2.Twist{Vy: dir * v * dt}})
		}
	}

	c.dt, c.v, c.kmax, c.kseg, c.onlyfwd = dt, v, kmax, kseg, onlyfwd
	c.prims = prims
	c.log.LogAttrs(context.Background(), slog.LevelDebug, "set primitives",
		slog.Float64("dt", dt),
		slog.Float64("vx", v),
		slog.Float64("kmax", kmax),
		slog.Int("kseg", kseg),
		slog.Bool("onlyfwd", onlyfwd),
		slog.Bool("slip", c.slip),
		slog.Int("count", len(prims)),
	)
}

// Primitives returns a copy of the templates.
func (c *Car) Primitives() []Primitive {
	return append([]Primitive(nil), c.prims...)
}

// samples returns the number of integration steps for a primitive so that
// consecutive samples are at most one fine cell apart.
func (c *Car) samples(t se2.Twist) int {
	n := 1
	n = max(n, int(math.Ceil(t.Length()/c.dl)))
	n = max(n, int(math.Ceil(math.Abs(t.W)/c.da)))
	return n
}

// blocked reports whether a sample pose is outside the map, on an occupied
// configuration cell, or (with a footprint) colliding with an obstacle.
func (c *Car) blocked(p se2.Pose) bool {
	if c.grid.Occupied(p) {
		return true
	}
	return c.footprint != nil && c.footprint.Collides(p)
}

// instantiate integrates prim from pose. It returns the sampled poses, the
// coarse cells touched and whether every sample is collision free.
func (c *Car) instantiate(from se2.Pose, prim Primitive) ([]se2.Pose, []int, bool) {
	n := c.samples(prim.Twist)
	poses := make([]se2.Pose, 0, n+1)
	poses = append(poses, from)
	touched := make([]int, 0, n)
	ok := true
	for i := 1; i <= n; i++ {
		p := se2.Integrate(from, prim.Twist.Scale(float64(i)/float64(n)))
		id, err := c.grid.Index(p)
		if err != nil {
			return poses, touched, false
		}
		touched = append(touched, id)
		if c.blocked(p) {
			ok = false
		}
		poses = append(poses, p)
	}
	return poses, touched, ok
}

// Next returns the accepted transitions out of cell from, at most one per
// target cell, and every coarse cell inspected while sampling.
func (c *Car) Next(from int) ([]Candidate, []int) {
	origin := c.grid.Center(from)
	best := make(map[int]int)
	var out []Candidate
	seen := make(map[int]struct{})
	var swept []int
	for _, prim := range c.prims {
		poses, touched, ok := c.instantiate(origin, prim)
		for _, id := range touched {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				swept = append(swept, id)
			}
		}
		if !ok {
			continue
		}
		to := touched[len(touched)-1]
		if to == from || !c.grid.Free(to) {
			continue
		}
		cost := c.cost.Real(origin, c.grid.Center(to)) * c.grid.Factor(to)
		if i, dup := best[to]; dup {
			if cost < out[i].Cost {
				out[i] = Candidate{To: to, Cost: cost, Poses: poses, Primitive: prim}
			}
			continue
		}
		best[to] = len(out)
		out = append(out, Candidate{To: to, Cost: cost, Poses: poses, Primitive: prim})
	}
	return out, swept
}

// Successors implements search.Connectivity.
func (c *Car) Successors(from int) ([]search.Transition[se2.Pose], []int) {
	cands, swept := c.Next(from)
	out := make([]search.Transition[se2.Pose], len(cands))
	for i, cand := range cands {
		out[i] = search.Transition[se2.Pose]{To: cand.To, Cost: cand.Cost, Poses: cand.Poses}
	}
	return out, swept
}

// Prims returns the accepted primitives from the cell containing p as pose
// sequences, for display.
func (c *Car) Prims(p se2.Pose) ([][]se2.Pose, error) {
	id, err := c.grid.Index(p)
	if err != nil {
		return nil, err
	}
	cands, _ := c.Next(id)
	out := make([][]se2.Pose, len(cands))
	for i, cand := range cands {
		out[i] = cand.Poses
	}
	return out, nil
}
