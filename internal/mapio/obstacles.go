package mapio

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"car-planner/internal/lattice"
)

// LoadObstacles reads the Polygon and MultiPolygon features of a GeoJSON
// FeatureCollection in map coordinates. Other geometry types are skipped.
func LoadObstacles(path string) ([]orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return ParseObstacles(data)
}

// ParseObstacles decodes GeoJSON obstacle polygons.
func ParseObstacles(data []byte) ([]orb.Polygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	var polys []orb.Polygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		}
	}
	return polys, nil
}

// Rasterize marks every cell of omap whose center lies inside one of polys
// and returns the ids that changed.
func Rasterize(omap *lattice.Map[bool], polys []orb.Polygon) []int {
	var changed []int
	lo, hi := omap.Lower(), omap.Upper()
	for _, poly := range polys {
		if len(poly) == 0 {
			continue
		}
		b := poly.Bound()
		ids := omap.Overlapping(
			[]float64{max(b.Min[0], lo[0]), max(b.Min[1], lo[1])},
			[]float64{min(b.Max[0], hi[0]), min(b.Max[1], hi[1])},
		)
		for _, id := range ids {
			if omap.At(id) {
				continue
			}
			c := omap.Center(id)
			if planar.PolygonContains(poly, orb.Point{c[0], c[1]}) {
				omap.SetAt(id, true)
				changed = append(changed, id)
			}
		}
	}
	return changed
}

// Bounds returns the xy box covering ids, for incremental refreshes.
func Bounds(omap *lattice.Map[bool], ids []int) (lo, hi [2]float64, ok bool) {
	if len(ids) == 0 {
		return lo, hi, false
	}
	var b orb.Bound
	for i, id := range ids {
		c := omap.Center(id)
		p := orb.Point{c[0], c[1]}
		if i == 0 {
			b = p.Bound()
			continue
		}
		b = b.Extend(p)
	}
	return [2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, true
}
