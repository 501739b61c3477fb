// Package vel3 describes states of a vehicle moving in 3D space whose
// velocity direction is part of the state: a position plus the yaw and pitch
// of the direction of travel. Transitions between such states are cubic
// Bezier curves tangent to the headings at both ends.
package vel3

import (
	"math"

	"car-planner/internal/se2"
)

// State is a position and a heading of travel.
type State struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Vec returns the state as an (x, y, z, yaw, pitch) slice.
func (s State) Vec() []float64 { return []float64{s.X, s.Y, s.Z, s.Yaw, s.Pitch} }

// FromVec builds a state from an (x, y, z, yaw, pitch) slice.
func FromVec(v []float64) State {
	return State{X: v[0], Y: v[1], Z: v[2], Yaw: v[3], Pitch: v[4]}
}

// Position returns the position of s.
func (s State) Position() [3]float64 { return [3]float64{s.X, s.Y, s.Z} }

// Distance returns the Euclidean distance between the positions of two
// states.
func (s State) Distance(o State) float64 {
	return norm(sub(o.Position(), s.Position()))
}

// Dir returns the unit direction of travel for yaw and pitch.
func Dir(yaw, pitch float64) [3]float64 {
	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)
	return [3]float64{cp * cy, cp * sy, sp}
}

// Heading returns the yaw and pitch of direction d. A vertical or zero d
// has no yaw; keep is returned for it instead.
func Heading(d [3]float64, keep float64) (yaw, pitch float64) {
	h := math.Hypot(d[0], d[1])
	yaw = keep
	if h > 1e-12 {
		yaw = math.Atan2(d[1], d[0])
	}
	return se2.WrapAngle(yaw), math.Atan2(d[2], h)
}

// Bezier is a cubic Bezier curve.
type Bezier [4][3]float64

// Join returns the curve from a to b leaving a along its heading and
// arriving at b along its heading. The inner control points sit a third of
// the chord away from the ends.
func Join(a, b State) Bezier {
	pa, pb := a.Position(), b.Position()
	d := norm(sub(pb, pa)) / 3
	ua, ub := Dir(a.Yaw, a.Pitch), Dir(b.Yaw, b.Pitch)
	return Bezier{
		pa,
		add(pa, scale(ua, d)),
		sub(pb, scale(ub, d)),
		pb,
	}
}

// At evaluates the curve at t in [0, 1].
func (c Bezier) At(t float64) [3]float64 {
	u := 1 - t
	b0, b1, b2, b3 := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	var p [3]float64
	for i := range p {
		p[i] = b0*c[0][i] + b1*c[1][i] + b2*c[2][i] + b3*c[3][i]
	}
	return p
}

// Sample returns n+1 points evenly spaced in t, both ends included, and the
// length of the polyline through them.
func (c Bezier) Sample(n int) ([][3]float64, float64) {
	n = max(n, 1)
	pts := make([][3]float64, n+1)
	length := 0.0
	for i := range pts {
		pts[i] = c.At(float64(i) / float64(n))
		if i > 0 {
			length += norm(sub(pts[i], pts[i-1]))
		}
	}
	return pts, length
}

func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}
func norm(a [3]float64) float64 { return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2]) }
