// Package render draws occupancy maps, paths and motion primitives for
// inspection.
package render

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"

	"car-planner/internal/cspace"
	"car-planner/internal/lattice"
	"car-planner/internal/se2"
)

// Color is an RGBA color with components in [0, 1].
type Color = gg.RGBA

// Colors used by the planner outputs.
var (
	ColorPath      = gg.RGB(0, 0, 1)
	ColorStart     = gg.RGB(0, 0.7, 0)
	ColorGoal      = gg.RGB(0.9, 0, 0)
	ColorPrimitive = gg.RGB(0.9, 0.5, 0)
	ColorGraph     = gg.RGB(0.6, 0.6, 0.6)
)

// Canvas is an image of a 2D occupancy map in world coordinates.
type Canvas struct {
	dc     *gg.Context
	lower  []float64
	cs     []float64
	height float64
	scale  float64
	err    error
}

// New draws omap with scale pixels per cell.
func New(omap *lattice.Map[bool], scale int) (*Canvas, error) {
	if omap.Dim() != 2 {
		return nil, fmt.Errorf("occupancy map has %d dimensions, want 2", omap.Dim())
	}
	if scale < 1 {
		scale = 1
	}
	dims := omap.Dims()
	w, h := dims[0]*scale, dims[1]*scale
	c := &Canvas{
		dc:     gg.NewContext(w, h),
		lower:  omap.Lower(),
		cs:     omap.CellSize(),
		height: float64(h),
		scale:  float64(scale),
	}
	c.dc.ClearWithColor(gg.RGB(1, 1, 1))
	black := gg.RGB(0, 0, 0)
	for id, occ := range omap.Cells() {
		if !occ {
			continue
		}
		ij := omap.Unflatten(id)
		for dx := 0; dx < scale; dx++ {
			for dy := 0; dy < scale; dy++ {
				c.dc.SetPixel(ij[0]*scale+dx, h-1-(ij[1]*scale+dy), black)
			}
		}
	}
	return c, nil
}

// px converts world xy to pixel coordinates.
func (c *Canvas) px(x, y float64) (float64, float64) {
	return (x - c.lower[0]) / c.cs[0] * c.scale, c.height - (y-c.lower[1])/c.cs[1]*c.scale
}

func (c *Canvas) check(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

// Point draws a filled marker at pose p.
func (c *Canvas) Point(p se2.Pose, col Color, radius float64) {
	x, y := c.px(p.X, p.Y)
	c.dc.SetRGB(col.R, col.G, col.B)
	c.dc.DrawCircle(x, y, radius)
	c.check(c.dc.Fill())
}

// Points draws a marker at every pose.
func (c *Canvas) Points(poses []se2.Pose, col Color) {
	for _, p := range poses {
		c.Point(p, col, 1)
	}
}

// Polyline connects consecutive poses.
func (c *Canvas) Polyline(poses []se2.Pose, col Color) {
	if len(poses) < 2 {
		return
	}
	c.dc.SetRGB(col.R, col.G, col.B)
	c.dc.SetLineWidth(1)
	x, y := c.px(poses[0].X, poses[0].Y)
	c.dc.MoveTo(x, y)
	for _, p := range poses[1:] {
		x, y = c.px(p.X, p.Y)
		c.dc.LineTo(x, y)
	}
	c.check(c.dc.Stroke())
}

// Footprints outlines the vehicle at every pose.
func (c *Canvas) Footprints(poses []se2.Pose, geom *cspace.Geometry, col Color) {
	c.dc.SetRGB(col.R, col.G, col.B)
	c.dc.SetLineWidth(1)
	for _, p := range poses {
		ring := geom.Footprint(p)
		for i, pt := range ring {
			x, y := c.px(pt[0], pt[1])
			if i == 0 {
				c.dc.MoveTo(x, y)
				continue
			}
			c.dc.LineTo(x, y)
		}
		c.dc.ClosePath()
		c.check(c.dc.Stroke())
	}
}

// Primitives draws each pose sequence as a polyline.
func (c *Canvas) Primitives(prims [][]se2.Pose, col Color) {
	for _, prim := range prims {
		c.Polyline(prim, col)
	}
}

// Segments draws straight graph edges.
func (c *Canvas) Segments(segs [][2]se2.Pose, col Color) {
	for _, s := range segs {
		c.Polyline(s[:], col)
	}
}

// Image returns the rendered image.
func (c *Canvas) Image() image.Image {
	c.check(c.dc.FlushGPU())
	return c.dc.Image()
}

// Err returns the first drawing error.
func (c *Canvas) Err() error { return c.err }

// SavePNG writes the canvas to path.
func (c *Canvas) SavePNG(path string) error {
	if c.err != nil {
		return fmt.Errorf("failed to render %s: %w", path, c.err)
	}
	if err := c.dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Close releases the drawing context.
func (c *Canvas) Close() error { return c.dc.Close() }

// SaveCMapSlices writes one PNG per heading slab of a configuration map to
// dir and returns the file names.
func SaveCMapSlices(cmap *lattice.Map[bool], dir string) ([]string, error) {
	if cmap.Dim() != 3 {
		return nil, fmt.Errorf("configuration map has %d dimensions, want 3", cmap.Dim())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	dims := cmap.Dims()
	lo, hi, cs := cmap.Lower(), cmap.Upper(), cmap.CellSize()
	slab := dims[1] * dims[2]
	var names []string
	var errs []error
	for a := 0; a < dims[0]; a++ {
		m, err := lattice.NewMap[bool](lo[1:], hi[1:], cs[1:])
		if err != nil {
			return nil, err
		}
		copy(m.Cells(), cmap.Cells()[a*slab:(a+1)*slab])
		c, err := New(m, 1)
		if err != nil {
			return nil, err
		}
		name := filepath.Join(dir, fmt.Sprintf("cmap_%02d.png", a))
		errs = append(errs, c.SavePNG(name), c.Close())
		names = append(names, name)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return names, nil
}
