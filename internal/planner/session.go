// Package planner wires maps, the configuration space, the vehicle model and
// the incremental search into one planning session.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"car-planner/internal/config"
	"car-planner/internal/connectivity"
	"car-planner/internal/cost"
	"car-planner/internal/cspace"
	"car-planner/internal/grid"
	"car-planner/internal/lattice"
	"car-planner/internal/logging"
	"car-planner/internal/mapio"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

var tracer = otel.Tracer("carplan.planner")

// ErrMapMismatch is returned when a configuration map or replacement
// occupancy map does not cover the same cells as the session map.
var ErrMapMismatch = errors.New("map does not match session map")

// Session is one planning problem. It is not safe for concurrent use.
type Session struct {
	id     string
	params *config.Params
	log    *slog.Logger

	omap *lattice.Map[bool]
	cmap *lattice.Map[bool]
	geom *cspace.Geometry
	obs  *cspace.Obstacles

	grid   *grid.SE2Grid
	cost   *cost.Car
	conn   *connectivity.Car
	search *search.Search[se2.Pose]

	path search.Path[se2.Pose]
}

// CMapPath returns where the configuration map of mapPath is cached.
func CMapPath(mapPath string) string {
	return strings.TrimSuffix(mapPath, filepath.Ext(mapPath)) + ".cmap"
}

// Open loads or builds every layer described by p. When p names no cmap the
// configuration map is built and cached next to the occupancy map.
func Open(ctx context.Context, p *config.Params) (*Session, error) {
	id := uuid.NewString()
	ctx, span := tracer.Start(ctx, "planner.Open", trace.WithAttributes(
		attribute.String("session", id),
		attribute.String("map", p.Map),
	))
	defer span.End()

	s, err := open(ctx, id, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s, nil
}

func open(ctx context.Context, id string, p *config.Params) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx).With("session", id)
	s := &Session{id: id, params: p, log: log}

	omap, err := mapio.LoadOccupancy(p.Map, [2]float64{p.OCS[1], p.OCS[2]})
	if err != nil {
		return nil, err
	}
	dims := omap.Dims()
	log.Info("loaded occupancy map", "path", p.Map, "width", dims[0], "height", dims[1])
	if p.Obstacles != "" {
		polys, err := mapio.LoadObstacles(p.Obstacles)
		if err != nil {
			return nil, err
		}
		n := len(mapio.Rasterize(omap, polys))
		log.Info("rasterized obstacles", "path", p.Obstacles, "polygons", len(polys), "cells", n)
	}
	s.omap = omap

	if s.geom, err = p.Geometry(); err != nil {
		return nil, err
	}
	if s.cmap, err = s.loadCMap(ctx); err != nil {
		return nil, err
	}

	if p.TMap != "" {
		tmap, err := mapio.LoadTerrain(p.TMap, [2]float64{p.OCS[1], p.OCS[2]})
		if err != nil {
			return nil, err
		}
		if s.grid, err = grid.NewTerrainSE2Grid(s.cmap, tmap, p.GridCellSize()); err != nil {
			return nil, err
		}
		log.Info("loaded terrain map", "path", p.TMap)
	} else if s.grid, err = grid.NewSE2Grid(s.cmap, p.GridCellSize()); err != nil {
		return nil, err
	}
	if s.cost, err = p.CostModel(); err != nil {
		return nil, err
	}
	opts := []connectivity.Option{
		connectivity.WithLogger(log),
		connectivity.WithSlip(p.AllowSlip),
	}
	if s.geom != nil {
		s.obs = cspace.NewObstacles(omap)
		opts = append(opts, connectivity.WithFootprint(cspace.NewChecker(s.geom, s.obs)))
	}
	s.conn = connectivity.NewCar(s.grid, s.cost, opts...)
	if err := s.conn.SetPrimitives(p.DT, p.VX, p.KMax, p.KSeg, p.OnlyFwd); err != nil {
		return nil, err
	}

	start := time.Now()
	s.search = search.New[se2.Pose](s.grid, s.conn, s.cost,
		search.WithInitExpand(p.InitExpand),
		search.WithLogger(log),
	)
	log.Info("created search graph",
		"cells", s.grid.Len(),
		"vertices", s.search.Vertices(),
		"edges", s.search.Edges(),
		"elapsed", time.Since(start),
	)

	if p.HasStart() && p.HasGoal() {
		if err := s.Route(p.StartPose(), p.GoalPose()); err != nil {
			log.Warn("invalid start or goal", "error", err)
		}
	}
	return s, nil
}

func (s *Session) loadCMap(ctx context.Context) (*lattice.Map[bool], error) {
	p := s.params
	if p.CMap != "" {
		cmap, err := lattice.LoadFile(p.CMap, 3, lattice.WithWrap(0))
		if err != nil {
			return nil, err
		}
		if err := s.checkCMap(cmap); err != nil {
			return nil, fmt.Errorf("%s: %w", p.CMap, err)
		}
		s.log.Info("loaded cmap", "path", p.CMap, "lower", cmap.Lower(), "upper", cmap.Upper(), "cs", cmap.CellSize())
		return cmap, nil
	}

	start := time.Now()
	cmap, err := cspace.Build(ctx, s.omap, p.OCS[0], s.geom, p.NThreads)
	if err != nil {
		return nil, err
	}
	s.log.Info("built cmap", "elapsed", time.Since(start), "nthreads", p.NThreads, "footprint", s.geom != nil)

	name := CMapPath(p.Map)
	if err := lattice.SaveFile(name, cmap); err != nil {
		s.log.Warn("could not cache cmap", "path", name, "error", err)
	} else {
		s.log.Info("saved cmap", "path", name, "lower", cmap.Lower(), "upper", cmap.Upper(), "cs", cmap.CellSize())
	}
	return cmap, nil
}

// checkCMap verifies that a loaded configuration map covers the occupancy
// map cell for cell.
func (s *Session) checkCMap(cmap *lattice.Map[bool]) error {
	olo, ohi, ocs := s.omap.Lower(), s.omap.Upper(), s.omap.CellSize()
	clo, chi, ccs := cmap.Lower(), cmap.Upper(), cmap.CellSize()
	for i := 0; i < 2; i++ {
		if math.Abs(olo[i]-clo[i+1]) > 1e-9 || math.Abs(ohi[i]-chi[i+1]) > 1e-9 || math.Abs(ocs[i]-ccs[i+1]) > 1e-9 {
			return fmt.Errorf("%w: cmap xy box [%v, %v) at %v, occupancy map [%v, %v) at %v",
				ErrMapMismatch, clo[1:], chi[1:], ccs[1:], olo, ohi, ocs)
		}
	}
	return nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Params returns the session parameters.
func (s *Session) Params() *config.Params { return s.params }

// OMap returns the occupancy map.
func (s *Session) OMap() *lattice.Map[bool] { return s.omap }

// CMap returns the configuration map.
func (s *Session) CMap() *lattice.Map[bool] { return s.cmap }

// Grid returns the search grid.
func (s *Session) Grid() *grid.SE2Grid { return s.grid }

// Connectivity returns the vehicle model.
func (s *Session) Connectivity() *connectivity.Car { return s.conn }

// Search returns the search engine.
func (s *Session) Search() *search.Search[se2.Pose] { return s.search }

// Geometry returns the vehicle geometry, nil for a point vehicle.
func (s *Session) Geometry() *cspace.Geometry { return s.geom }

// Path returns the last planned path.
func (s *Session) Path() search.Path[se2.Pose] { return s.path }

// Route sets both ends of the problem. Both are attempted even when the
// first fails.
func (s *Session) Route(start, goal se2.Pose) error {
	s.params.Start = []float64{start.Theta, start.X, start.Y}
	s.params.Goal = []float64{goal.Theta, goal.X, goal.Y}
	var errs []error
	if err := s.search.SetStart(start); err != nil {
		errs = append(errs, fmt.Errorf("start: %w", err))
	}
	if err := s.search.SetGoal(goal); err != nil {
		errs = append(errs, fmt.Errorf("goal: %w", err))
	}
	return errors.Join(errs...)
}

// Plan converges the search and remembers the resulting path.
func (s *Session) Plan(ctx context.Context) (search.Path[se2.Pose], error) {
	_, span := tracer.Start(ctx, "planner.Plan", trace.WithAttributes(attribute.String("session", s.id)))
	defer span.End()

	start := time.Now()
	path, err := s.search.Plan()
	s.path = path
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("planning failed", "error", err, "elapsed", time.Since(start))
		return path, err
	}
	span.SetAttributes(
		attribute.Int("edges", path.Len()),
		attribute.Float64("cost", path.Cost),
	)
	s.log.Info("planned",
		"edges", path.Len(),
		"cost", path.Cost,
		"vertices", s.search.Vertices(),
		"elapsed", time.Since(start),
	)
	return path, nil
}

// SetCost changes the traversability of the grid cell containing p.
func (s *Session) SetCost(p se2.Pose, t grid.Traversability) error {
	return s.search.SetCost(p, t)
}

// Primitives returns the accepted motion primitives from p.
func (s *Session) Primitives(p se2.Pose) ([][]se2.Pose, error) {
	return s.conn.Prims(p)
}

// SaveCMap writes the current configuration map to its cache file next to
// the occupancy map and returns the file name.
func (s *Session) SaveCMap() (string, error) {
	name := CMapPath(s.params.Map)
	if err := lattice.SaveFile(name, s.cmap); err != nil {
		return "", err
	}
	return name, nil
}
