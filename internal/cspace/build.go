package cspace

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"car-planner/internal/lattice"
	"car-planner/internal/se2"
)

var tracer = otel.Tracer("carplan.cspace")

var (
	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carplan_cmap_build_duration_seconds",
		Help:    "Configuration map construction time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"footprint"})

	refreshCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carplan_cmap_refresh_cells",
		Help:    "Number of configuration map cells recomputed per map edit",
		Buckets: []float64{10, 100, 1000, 10000, 100000},
	})
)

// SE2Lattice returns the (angle, x, y) lattice spanning omap with angular
// cell size angleCS, adjusted so that a whole number of cells spans 2*pi.
// The angle axis covers [-pi + cs/2, pi + cs/2) so that heading 0 is a cell
// center.
func SE2Lattice(omap *lattice.Lattice, angleCS float64) (*lattice.Lattice, error) {
	if omap.Dim() != 2 {
		return nil, fmt.Errorf("occupancy map has %d dimensions, want 2", omap.Dim())
	}
	if !(angleCS > 0) {
		return nil, fmt.Errorf("angular cell size must be positive, got %g", angleCS)
	}
	n := math.Max(1, math.Round(2*math.Pi/angleCS))
	cs := 2 * math.Pi / n
	lb, ub, ocs := omap.Lower(), omap.Upper(), omap.CellSize()
	return lattice.New(
		[]float64{-math.Pi + cs/2, lb[0], lb[1]},
		[]float64{math.Pi + cs/2, ub[0], ub[1]},
		[]float64{cs, ocs[0], ocs[1]},
		lattice.WithWrap(0),
	)
}

// offset is a relative occupancy cell covered by the footprint.
type offset struct{ di, dj int }

// kernel returns the occupancy cells covered by the footprint at heading
// theta, relative to the cell holding the reference point.
func kernel(geom *Geometry, theta float64, cs []float64) []offset {
	out := []offset{{0, 0}}
	if geom == nil {
		return out
	}
	ring := geom.Footprint(se2.Pose{Theta: theta})
	b := ring.Bound()
	i0, i1 := int(math.Floor(b.Min[0]/cs[0]))-1, int(math.Ceil(b.Max[0]/cs[0]))+1
	j0, j1 := int(math.Floor(b.Min[1]/cs[1]))-1, int(math.Ceil(b.Max[1]/cs[1]))+1
	for i := i0; i <= i1; i++ {
		for j := j0; j <= j1; j++ {
			if i == 0 && j == 0 {
				continue
			}
			if planar.RingContains(ring, orb.Point{float64(i) * cs[0], float64(j) * cs[1]}) {
				out = append(out, offset{i, j})
			}
		}
	}
	return out
}

// fillCell computes the occupancy of configuration cell (i, j) in a slab
// with footprint kernel k.
func fillCell(omap *lattice.Map[bool], nx, ny, i, j int, k []offset) bool {
	cells := omap.Cells()
	for _, o := range k {
		ii, jj := i+o.di, j+o.dj
		if ii < 0 || jj < 0 || ii >= nx || jj >= ny {
			return true
		}
		if cells[ii*ny+jj] {
			return true
		}
	}
	return false
}

// Build computes the configuration-space map of omap for a vehicle with the
// given geometry. A cell (theta, x, y) is occupied when the footprint placed
// at its center covers an occupied occupancy cell or leaves the map. Without
// a geometry the occupancy map is replicated over all headings.
//
// Headings are split into contiguous slab ranges, one per worker; the result
// does not depend on nthreads.
func Build(ctx context.Context, omap *lattice.Map[bool], angleCS float64, geom *Geometry, nthreads int) (*lattice.Map[bool], error) {
	ctx, span := tracer.Start(ctx, "cspace.Build",
		trace.WithAttributes(
			attribute.Int("nthreads", nthreads),
			attribute.Bool("footprint", geom != nil),
		),
	)
	defer span.End()
	start := time.Now()

	lat, err := SE2Lattice(omap.Lattice, angleCS)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	cmap := lattice.NewMapOn[bool](lat)
	dims := lat.Dims()
	na, nx, ny := dims[0], dims[1], dims[2]
	slab := nx * ny
	ocs := omap.CellSize()

	if nthreads < 1 {
		nthreads = 1
	}
	if nthreads > na {
		nthreads = na
	}
	per := (na + nthreads - 1) / nthreads

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < nthreads; w++ {
		lo, hi := w*per, min((w+1)*per, na)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			out := cmap.Cells()
			for a := lo; a < hi; a++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				theta := lat.Center(a * slab)[0]
				k := kernel(geom, theta, ocs)
				base := a * slab
				for i := 0; i < nx; i++ {
					for j := 0; j < ny; j++ {
						out[base+i*ny+j] = fillCell(omap, nx, ny, i, j, k)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to build configuration map: %w", err)
	}

	buildDuration.WithLabelValues(fmt.Sprint(geom != nil)).Observe(time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "")
	return cmap, nil
}

// Refresh recomputes the configuration cells affected by an occupancy edit
// inside the xy box [lo, hi] and returns the dilated box that was updated.
func Refresh(cmap, omap *lattice.Map[bool], geom *Geometry, lo, hi [2]float64) (dlo, dhi [2]float64) {
	r := 0.0
	if geom != nil {
		r = geom.Radius()
	}
	ocs := omap.CellSize()
	pad := [2]float64{r + ocs[0], r + ocs[1]}
	dlo = [2]float64{lo[0] - pad[0], lo[1] - pad[1]}
	dhi = [2]float64{hi[0] + pad[0], hi[1] + pad[1]}

	dims := cmap.Dims()
	nx, ny := dims[1], dims[2]
	ub := cmap.Upper()
	ids := cmap.Overlapping(
		[]float64{cmap.Lower()[0], dlo[0], dlo[1]},
		[]float64{ub[0] - cmap.CellSize()[0]/2, dhi[0], dhi[1]},
	)

	kernels := make(map[int][]offset)
	slab := nx * ny
	for _, id := range ids {
		a := id / slab
		k, ok := kernels[a]
		if !ok {
			k = kernel(geom, cmap.Center(a*slab)[0], ocs)
			kernels[a] = k
		}
		rest := id % slab
		cmap.SetAt(id, fillCell(omap, nx, ny, rest/ny, rest%ny, k))
	}
	refreshCells.Observe(float64(len(ids)))
	return dlo, dhi
}
