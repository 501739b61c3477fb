// Package se2 implements the planar rigid-motion group used to integrate
// vehicle motion: poses in (angle, x, y) coordinates, their homogeneous
// matrix form and the exponential map between twists and relative poses.
package se2

import "math"

// Pose is a planar pose in minimal coordinates. The angle comes first to
// match the (angle, x, y) ordering of configuration maps.
type Pose struct {
	Theta float64 `json:"theta"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Vec returns the pose as an (angle, x, y) slice.
func (p Pose) Vec() []float64 { return []float64{p.Theta, p.X, p.Y} }

// FromVec builds a pose from an (angle, x, y) slice.
func FromVec(v []float64) Pose { return Pose{Theta: v[0], X: v[1], Y: v[2]} }

// Distance returns the Euclidean distance between the positions of two poses.
func (p Pose) Distance(other Pose) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Twist is a body-frame velocity: angular rate W and linear velocity (Vx, Vy).
type Twist struct {
	W  float64 `json:"w"`
	Vx float64 `json:"vx"`
	Vy float64 `json:"vy"`
}

// Scale returns the twist multiplied by s, e.g. a velocity integrated over time s.
func (t Twist) Scale(s float64) Twist {
	return Twist{W: t.W * s, Vx: t.Vx * s, Vy: t.Vy * s}
}

// Length is the translational arc length of the twist.
func (t Twist) Length() float64 { return math.Hypot(t.Vx, t.Vy) }

// Matrix is a homogeneous 3x3 transform.
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m*o.
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// Inverse returns the inverse rigid transform.
func (m Matrix) Inverse() Matrix {
	// R^T and -R^T p
	x, y := m[0][2], m[1][2]
	return Matrix{
		{m[0][0], m[1][0], -(m[0][0]*x + m[1][0]*y)},
		{m[0][1], m[1][1], -(m[0][1]*x + m[1][1]*y)},
		{0, 0, 1},
	}
}

// Q2G converts minimal coordinates to a group element.
func Q2G(p Pose) Matrix {
	s, c := math.Sincos(p.Theta)
	return Matrix{
		{c, -s, p.X},
		{s, c, p.Y},
		{0, 0, 1},
	}
}

// G2Q converts a group element to minimal coordinates.
func G2Q(m Matrix) Pose {
	return Pose{Theta: math.Atan2(m[1][0], m[0][0]), X: m[0][2], Y: m[1][2]}
}

// Compose returns the pose b expressed relative to a, i.e. a*b.
func Compose(a, b Pose) Pose {
	return G2Q(Q2G(a).Mul(Q2G(b)))
}

// Exp maps a twist to the relative transform reached by following it for
// unit time.
func Exp(t Twist) Matrix {
	if math.Abs(t.W) < 1e-12 {
		return Matrix{
			{1, 0, t.Vx},
			{0, 1, t.Vy},
			{0, 0, 1},
		}
	}
	s, c := math.Sincos(t.W)
	a := s / t.W
	b := (1 - c) / t.W
	return Matrix{
		{c, -s, a*t.Vx - b*t.Vy},
		{s, c, b*t.Vx + a*t.Vy},
		{0, 0, 1},
	}
}

// Log is the inverse of Exp for rotations in (-pi, pi].
func Log(m Matrix) Twist {
	w := math.Atan2(m[1][0], m[0][0])
	x, y := m[0][2], m[1][2]
	if math.Abs(w) < 1e-12 {
		return Twist{W: 0, Vx: x, Vy: y}
	}
	s, c := math.Sin(w), math.Cos(w)
	k := w / (2 * (1 - c))
	return Twist{
		W:  w,
		Vx: k * (s*x + (1-c)*y),
		Vy: k * (-(1-c)*x + s*y),
	}
}

// Integrate follows twist t from pose p for unit time.
func Integrate(p Pose, t Twist) Pose {
	return G2Q(Q2G(p).Mul(Exp(t)))
}

// WrapAngle maps a into [-pi, pi).
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDiff is the shortest signed angle from b to a.
func AngleDiff(a, b float64) float64 {
	return WrapAngle(a - b)
}
