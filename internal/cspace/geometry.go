// Package cspace builds configuration-space occupancy maps from 2D occupancy
// maps and checks vehicle footprints against obstacles.
package cspace

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"car-planner/internal/se2"
)

// ErrInvalidGeometry is returned for malformed footprint parameters.
var ErrInvalidGeometry = errors.New("invalid vehicle geometry")

// Geometry is a rectangular vehicle footprint in the body frame. The
// rectangle is centered at (OffsetX, OffsetY) relative to the reference
// point, Length along the heading and Width across it, grown by Buffer on
// every side.
type Geometry struct {
	Length  float64 `json:"length" yaml:"length"`
	Width   float64 `json:"width" yaml:"width"`
	OffsetX float64 `json:"offsetX" yaml:"offset_x"`
	OffsetY float64 `json:"offsetY" yaml:"offset_y"`
	Buffer  float64 `json:"buffer" yaml:"buffer"`
}

// NewGeometry parses (length, width, offset x, offset y[, buffer]).
func NewGeometry(values []float64) (*Geometry, error) {
	if len(values) != 4 && len(values) != 5 {
		return nil, fmt.Errorf("%w: want 4 or 5 values, got %d", ErrInvalidGeometry, len(values))
	}
	g := &Geometry{Length: values[0], Width: values[1], OffsetX: values[2], OffsetY: values[3]}
	if len(values) == 5 {
		g.Buffer = values[4]
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the footprint has a positive area.
func (g *Geometry) Validate() error {
	if !(g.Length > 0) || !(g.Width > 0) || g.Buffer < 0 {
		return fmt.Errorf("%w: length=%g width=%g buffer=%g", ErrInvalidGeometry, g.Length, g.Width, g.Buffer)
	}
	return nil
}

// corners returns the footprint corners in the body frame, counter-clockwise.
func (g *Geometry) corners() [4][2]float64 {
	hl := g.Length/2 + g.Buffer
	hw := g.Width/2 + g.Buffer
	return [4][2]float64{
		{g.OffsetX - hl, g.OffsetY - hw},
		{g.OffsetX + hl, g.OffsetY - hw},
		{g.OffsetX + hl, g.OffsetY + hw},
		{g.OffsetX - hl, g.OffsetY + hw},
	}
}

// Footprint returns the closed footprint ring at pose p.
func (g *Geometry) Footprint(p se2.Pose) orb.Ring {
	ring := make(orb.Ring, 0, 5)
	for _, v := range g.corners() {
		q := se2.Compose(p, se2.Pose{X: v[0], Y: v[1]})
		ring = append(ring, orb.Point{q.X, q.Y})
	}
	return append(ring, ring[0])
}

// Radius is the largest distance from the reference point to the footprint.
func (g *Geometry) Radius() float64 {
	r := 0.0
	for _, v := range g.corners() {
		r = math.Max(r, math.Hypot(v[0], v[1]))
	}
	return r
}
