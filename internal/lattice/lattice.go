// Package lattice provides n-dimensional regular cell lattices over a bounded
// box and maps storing one value per cell.
package lattice

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned for points outside the lattice box.
	ErrOutOfBounds = errors.New("point out of bounds")
	// ErrInvalid is returned for malformed lattice dimensions.
	ErrInvalid = errors.New("invalid lattice")
	// ErrCorrupt is returned when a persisted map cannot be decoded.
	ErrCorrupt = errors.New("corrupt map data")
)

// Lattice is a regular grid over [lower, upper) with fixed cell size per
// dimension. Cells are numbered in row-major order, dimension 0 slowest.
type Lattice struct {
	lower  []float64
	upper  []float64
	cs     []float64
	dims   []int
	stride []int
	wrap   []bool
	n      int
}

// Option configures a Lattice.
type Option func(*Lattice)

// WithWrap marks dimensions as periodic, e.g. an angle axis.
func WithWrap(dims ...int) Option {
	return func(l *Lattice) {
		for _, d := range dims {
			if d >= 0 && d < len(l.wrap) {
				l.wrap[d] = true
			}
		}
	}
}

// New creates a lattice. All three slices must have the same length and
// every cell size must be positive.
func New(lower, upper, cs []float64, opts ...Option) (*Lattice, error) {
	d := len(lower)
	if d == 0 || len(upper) != d || len(cs) != d {
		return nil, fmt.Errorf("%w: dimension mismatch (%d, %d, %d)", ErrInvalid, len(lower), len(upper), len(cs))
	}
	l := &Lattice{
		lower:  append([]float64(nil), lower...),
		upper:  append([]float64(nil), upper...),
		cs:     append([]float64(nil), cs...),
		dims:   make([]int, d),
		stride: make([]int, d),
		wrap:   make([]bool, d),
	}
	for i := 0; i < d; i++ {
		if !(cs[i] > 0) || !(upper[i] > lower[i]) {
			return nil, fmt.Errorf("%w: axis %d has bounds [%g, %g) and cell size %g", ErrInvalid, i, lower[i], upper[i], cs[i])
		}
		l.dims[i] = int(math.Ceil((upper[i]-lower[i])/cs[i] - 1e-9))
	}
	l.n = 1
	for i := d - 1; i >= 0; i-- {
		l.stride[i] = l.n
		l.n *= l.dims[i]
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Dim returns the number of dimensions.
func (l *Lattice) Dim() int { return len(l.dims) }

// Len returns the total number of cells.
func (l *Lattice) Len() int { return l.n }

// Lower returns a copy of the lower bounds.
func (l *Lattice) Lower() []float64 { return append([]float64(nil), l.lower...) }

// Upper returns a copy of the upper bounds.
func (l *Lattice) Upper() []float64 { return append([]float64(nil), l.upper...) }

// CellSize returns a copy of the cell sizes.
func (l *Lattice) CellSize() []float64 { return append([]float64(nil), l.cs...) }

// Dims returns a copy of the number of cells along each axis.
func (l *Lattice) Dims() []int { return append([]int(nil), l.dims...) }

// Wrapped reports whether axis i is periodic.
func (l *Lattice) Wrapped(i int) bool { return l.wrap[i] }

// coord maps x to a cell along axis i. Non-finite values are never inside,
// not even on a periodic axis.
func (l *Lattice) coord(i int, x float64) (int, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	lb, ub := l.lower[i], l.upper[i]
	if l.wrap[i] {
		span := ub - lb
		x = lb + math.Mod(x-lb, span)
		if x < lb {
			x += span
		}
	} else if x < lb || x >= ub {
		return 0, false
	}
	c := int(math.Floor((x - lb) / l.cs[i]))
	if c >= l.dims[i] {
		c = l.dims[i] - 1
	}
	if c < 0 {
		c = 0
	}
	return c, true
}

// Coords returns the per-axis cell coordinates of x.
func (l *Lattice) Coords(x []float64) ([]int, error) {
	if len(x) != len(l.dims) {
		return nil, fmt.Errorf("%w: point has %d components, lattice %d", ErrInvalid, len(x), len(l.dims))
	}
	out := make([]int, len(x))
	for i, v := range x {
		c, ok := l.coord(i, v)
		if !ok {
			return nil, fmt.Errorf("%w: axis %d value %g outside [%g, %g)", ErrOutOfBounds, i, v, l.lower[i], l.upper[i])
		}
		out[i] = c
	}
	return out, nil
}

// Index returns the id of the cell containing x.
func (l *Lattice) Index(x []float64) (int, error) {
	c, err := l.Coords(x)
	if err != nil {
		return -1, err
	}
	return l.Flatten(c), nil
}

// Contains reports whether x lies inside the lattice box.
func (l *Lattice) Contains(x []float64) bool {
	_, err := l.Coords(x)
	return err == nil
}

// Flatten converts per-axis coordinates to a cell id.
func (l *Lattice) Flatten(c []int) int {
	id := 0
	for i, v := range c {
		id += v * l.stride[i]
	}
	return id
}

// Unflatten converts a cell id to per-axis coordinates.
func (l *Lattice) Unflatten(id int) []int {
	c := make([]int, len(l.dims))
	for i := range l.dims {
		c[i] = id / l.stride[i]
		id %= l.stride[i]
	}
	return c
}

// Center returns the center point of cell id.
func (l *Lattice) Center(id int) []float64 {
	c := l.Unflatten(id)
	x := make([]float64, len(c))
	for i, v := range c {
		x[i] = l.lower[i] + (float64(v)+0.5)*l.cs[i]
	}
	return x
}

// Overlapping returns the ids of all cells intersecting the box [lo, hi].
// Non-periodic axes are clipped to the lattice; periodic axes wrap around.
func (l *Lattice) Overlapping(lo, hi []float64) []int {
	d := len(l.dims)
	if len(lo) != d || len(hi) != d {
		return nil
	}
	ranges := make([][]int, d)
	for i := 0; i < d; i++ {
		a := int(math.Floor((lo[i] - l.lower[i]) / l.cs[i]))
		b := int(math.Floor((hi[i] - l.lower[i]) / l.cs[i]))
		if b < a {
			return nil
		}
		if l.wrap[i] {
			if b-a+1 >= l.dims[i] {
				a, b = 0, l.dims[i]-1
			}
			for c := a; c <= b; c++ {
				ranges[i] = append(ranges[i], ((c%l.dims[i])+l.dims[i])%l.dims[i])
			}
			continue
		}
		a = max(a, 0)
		b = min(b, l.dims[i]-1)
		if a > b {
			return nil
		}
		for c := a; c <= b; c++ {
			ranges[i] = append(ranges[i], c)
		}
	}

	var out []int
	var walk func(axis, base int)
	walk = func(axis, base int) {
		if axis == d {
			out = append(out, base)
			return
		}
		for _, c := range ranges[axis] {
			walk(axis+1, base+c*l.stride[axis])
		}
	}
	walk(0, 0)
	return out
}

// Equal reports whether two lattices share bounds, spacing and topology.
func (l *Lattice) Equal(o *Lattice) bool {
	if l.Dim() != o.Dim() {
		return false
	}
	for i := range l.dims {
		if l.lower[i] != o.lower[i] || l.upper[i] != o.upper[i] || l.cs[i] != o.cs[i] || l.wrap[i] != o.wrap[i] {
			return false
		}
	}
	return true
}
