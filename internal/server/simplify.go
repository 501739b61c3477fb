package server

import (
	"math"

	"car-planner/internal/se2"
)

// Simplify reduces a pose sequence with the Douglas-Peucker algorithm on the
// xy positions. Headings of the kept poses are preserved.
func Simplify(poses []se2.Pose, epsilon float64) []se2.Pose {
	if epsilon <= 0 || len(poses) <= 2 {
		return poses
	}
	return douglasPeucker(poses, epsilon)
}

func douglasPeucker(points []se2.Pose, epsilon float64) []se2.Pose {
	if len(points) <= 2 {
		return points
	}

	dmax := 0.0
	index := 0
	end := len(points) - 1
	for i := 1; i < end; i++ {
		d := perpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax > epsilon {
		left := douglasPeucker(points[:index+1], epsilon)
		right := douglasPeucker(points[index:], epsilon)

		result := make([]se2.Pose, 0, len(left)+len(right)-1)
		result = append(result, left[:len(left)-1]...)
		return append(result, right...)
	}
	return []se2.Pose{points[0], points[end]}
}

// perpendicularDistance is the distance from p to the line through a and b,
// or to a when a and b coincide.
func perpendicularDistance(p, a, b se2.Pose) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if mag := math.Hypot(dx, dy); mag > 0 {
		dx /= mag
		dy /= mag
	}
	px, py := p.X-a.X, p.Y-a.Y
	dot := dx*px + dy*py
	return math.Hypot(px-dot*dx, py-dot*dy)
}

// pathLength is the xy length of a pose polyline.
func pathLength(poses []se2.Pose) float64 {
	var l float64
	for i := 1; i < len(poses); i++ {
		l += poses[i].Distance(poses[i-1])
	}
	return l
}
