package connectivity

import (
	"fmt"
	"math"

	"car-planner/internal/grid"
	"car-planner/internal/search"
	"car-planner/internal/vel3"
)

// Default heading limits of a Vel3 connectivity, in bins per transition.
const (
	DefaultMaxYawStep   = 1
	DefaultMaxPitchStep = 1
)

// motion identifies a transition up to translation. Two transitions with
// the same motion sweep the same relative curve.
type motion struct {
	dx, dy, dz int
	t1, t2     int
	p1, p2     int
}

// trajectory is a curve relative to the center of its origin cell.
type trajectory struct {
	offsets [][3]float64
	length  float64
}

// Vel3 connects the cells of a Vel3Grid to their 26 position neighbors. The
// heading at the target cell is the direction of the move, and it may differ
// from the heading at the origin by a bounded number of bins. Every
// transition follows a Bezier curve tangent to both headings; curves are
// computed once per motion and reused.
type Vel3 struct {
	grid         *grid.Vel3Grid
	maxYaw       int
	maxPitch     int
	dl           float64
	trajectories map[motion]trajectory
}

// NewVel3 creates a connectivity allowing heading changes of at most
// maxYaw and maxPitch bins per transition.
func NewVel3(g *grid.Vel3Grid, maxYaw, maxPitch int) (*Vel3, error) {
	if maxYaw < 0 || maxPitch < 0 {
		return nil, fmt.Errorf("%w: heading steps %d and %d", ErrInvalidPrimitiveConfig, maxYaw, maxPitch)
	}
	cs := g.Lattice().CellSize()
	return &Vel3{
		grid:         g,
		maxYaw:       maxYaw,
		maxPitch:     maxPitch,
		dl:           math.Min(cs[0], math.Min(cs[1], cs[2])) / 2,
		trajectories: make(map[motion]trajectory),
	}, nil
}

// Cached returns the number of distinct motions computed so far.
func (v *Vel3) Cached() int { return len(v.trajectories) }

// yawSteps is the wrapped distance between two yaw bins.
func yawSteps(a, b, n int) int {
	d := (a - b) % n
	if d < 0 {
		d += n
	}
	return min(d, n-d)
}

func (v *Vel3) trajectory(m motion, from, to vel3.State) trajectory {
	if tr, ok := v.trajectories[m]; ok {
		return tr
	}
	curve := vel3.Join(from, to)
	n := int(math.Ceil(from.Distance(to)*2/v.dl)) + 1
	pts, length := curve.Sample(n)
	origin := from.Position()
	offsets := make([][3]float64, len(pts)-1)
	for i, p := range pts[1:] {
		offsets[i] = [3]float64{p[0] - origin[0], p[1] - origin[1], p[2] - origin[2]}
	}
	tr := trajectory{offsets: offsets, length: length}
	v.trajectories[m] = tr
	return tr
}

// Successors implements search.Connectivity.
func (v *Vel3) Successors(from int) ([]search.Transition[vel3.State], []int) {
	c := v.grid.Coord(from)
	origin := v.grid.Center(from)
	cs := v.grid.Lattice().CellSize()
	var out []search.Transition[vel3.State]
	seen := make(map[int]struct{})
	var swept []int
	sweep := func(id int) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			swept = append(swept, id)
		}
	}

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				d := [3]float64{float64(dx) * cs[0], float64(dy) * cs[1], float64(dz) * cs[2]}
				yaw, pitch := vel3.Heading(d, origin.Yaw)
				target, err := v.grid.Index(vel3.State{
					X: origin.X + d[0], Y: origin.Y + d[1], Z: origin.Z + d[2],
					Yaw: yaw, Pitch: pitch,
				})
				if err != nil {
					continue
				}
				tc := v.grid.Coord(target)
				if yawSteps(tc.Yaw, c.Yaw, v.grid.NumYaws()) > v.maxYaw || abs(tc.Pitch-c.Pitch) > v.maxPitch {
					continue
				}
				to := v.grid.Center(target)
				tr := v.trajectory(motion{dx, dy, dz, c.Yaw, tc.Yaw, c.Pitch, tc.Pitch}, origin, to)

				ok := true
				poses := make([]vel3.State, 0, len(tr.offsets)+1)
				poses = append(poses, origin)
				for _, o := range tr.offsets {
					s := vel3.State{X: origin.X + o[0], Y: origin.Y + o[1], Z: origin.Z + o[2], Yaw: to.Yaw, Pitch: to.Pitch}
					id, err := v.grid.Index(s)
					if err != nil {
						ok = false
						break
					}
					sweep(id)
					if id != from && !v.grid.Free(id) {
						ok = false
					}
					poses = append(poses, s)
				}
				if !ok || target == from || !v.grid.Free(target) {
					continue
				}
				out = append(out, search.Transition[vel3.State]{
					To:    target,
					Cost:  tr.length * v.grid.Factor(target),
					Poses: poses,
				})
			}
		}
	}
	return out, swept
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
