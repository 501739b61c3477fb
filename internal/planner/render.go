package planner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"car-planner/internal/render"
	"car-planner/internal/se2"
)

// Output file names written by Render.
const (
	PathImage = "path.png"
	PrimImage = "prim.png"
)

// renderScale is the number of pixels per occupancy cell.
const renderScale = 2

// Render writes the last path and the primitives at the start pose to dir.
// Start and goal markers are drawn even without a path.
func (s *Session) Render(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	pathFile := filepath.Join(dir, PathImage)
	primFile := filepath.Join(dir, PrimImage)
	err := errors.Join(s.renderPath(pathFile), s.renderPrims(primFile))
	if err != nil {
		return nil, err
	}
	return []string{pathFile, primFile}, nil
}

func (s *Session) renderPath(name string) error {
	c, err := render.New(s.omap, renderScale)
	if err != nil {
		return err
	}
	defer c.Close()

	if !s.path.Empty() {
		poses := s.path.Poses()
		if s.params.PlotCar && s.geom != nil {
			c.Footprints(s.path.Cells, s.geom, render.ColorPath)
		} else {
			c.Points(poses, render.ColorPath)
		}
	}
	s.renderEnds(c)
	return c.SavePNG(name)
}

func (s *Session) renderPrims(name string) error {
	c, err := render.New(s.omap, renderScale)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.params.HasStart() {
		prims, err := s.conn.Prims(s.params.StartPose())
		if err == nil {
			c.Primitives(prims, render.ColorPrimitive)
		}
	}
	s.renderEnds(c)
	return c.SavePNG(name)
}

func (s *Session) renderEnds(c *render.Canvas) {
	mark := func(p se2.Pose, col render.Color) {
		c.Point(p, col, 3)
	}
	if s.params.HasStart() {
		mark(s.params.StartPose(), render.ColorStart)
	}
	if s.params.HasGoal() {
		mark(s.params.GoalPose(), render.ColorGoal)
	}
}
