package cspace

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"car-planner/internal/lattice"
	"car-planner/internal/se2"
)

// cellEntry wraps an occupied occupancy cell for R-tree storage.
type cellEntry struct {
	id    int
	bound orb.Bound
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *cellEntry) Bounds() rtreego.Rect { return e.rect }

// Obstacles is a spatial index over the occupied cells of a 2D occupancy map.
type Obstacles struct {
	omap    *lattice.Map[bool]
	tree    *rtreego.Rtree
	entries map[int]*cellEntry
	extent  orb.Bound
}

// NewObstacles indexes every occupied cell of omap.
func NewObstacles(omap *lattice.Map[bool]) *Obstacles {
	lb, ub := omap.Lower(), omap.Upper()
	o := &Obstacles{
		omap:    omap,
		tree:    rtreego.NewTree(2, 25, 50),
		entries: make(map[int]*cellEntry),
		extent:  orb.Bound{Min: orb.Point{lb[0], lb[1]}, Max: orb.Point{ub[0], ub[1]}},
	}
	for id, occ := range omap.Cells() {
		if occ {
			o.insert(id)
		}
	}
	return o
}

func (o *Obstacles) insert(id int) {
	cs := o.omap.CellSize()
	c := o.omap.Center(id)
	lo := orb.Point{c[0] - cs[0]/2, c[1] - cs[1]/2}
	rect, err := rtreego.NewRect(rtreego.Point{lo[0], lo[1]}, []float64{cs[0], cs[1]})
	if err != nil {
		return
	}
	e := &cellEntry{
		id:    id,
		bound: orb.Bound{Min: lo, Max: orb.Point{lo[0] + cs[0], lo[1] + cs[1]}},
		rect:  rect,
	}
	o.entries[id] = e
	o.tree.Insert(e)
}

// Set marks occupancy cell id as occupied or free in both the map and the
// index.
func (o *Obstacles) Set(id int, occupied bool) {
	o.omap.SetAt(id, occupied)
	e, ok := o.entries[id]
	switch {
	case occupied && !ok:
		o.insert(id)
	case !occupied && ok:
		o.tree.Delete(e)
		delete(o.entries, id)
	}
}

// Len returns the number of indexed cells.
func (o *Obstacles) Len() int { return o.tree.Size() }

// Collides reports whether ring overlaps an occupied cell or leaves the map.
func (o *Obstacles) Collides(ring orb.Ring) bool {
	b := ring.Bound()
	if !o.extent.Contains(b.Min) || !o.extent.Contains(b.Max) {
		return true
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{b.Max[0] - b.Min[0] + 1e-12, b.Max[1] - b.Min[1] + 1e-12})
	if err != nil {
		return true
	}
	for _, hit := range o.tree.SearchIntersect(rect) {
		e := hit.(*cellEntry)
		if planar.RingContains(ring, e.bound.Center()) {
			return true
		}
		for _, p := range ring {
			if e.bound.Contains(p) {
				return true
			}
		}
	}
	return false
}

// Checker tests vehicle footprints against an obstacle index.
type Checker struct {
	geom *Geometry
	obs  *Obstacles
}

// NewChecker creates a footprint checker.
func NewChecker(geom *Geometry, obs *Obstacles) *Checker {
	return &Checker{geom: geom, obs: obs}
}

// Collides reports whether the footprint at pose p hits an obstacle.
func (c *Checker) Collides(p se2.Pose) bool {
	return c.obs.Collides(c.geom.Footprint(p))
}

// Geometry returns the footprint geometry.
func (c *Checker) Geometry() *Geometry { return c.geom }
