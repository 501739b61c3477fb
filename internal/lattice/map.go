package lattice

// Map stores one value of type T per lattice cell.
type Map[T any] struct {
	*Lattice
	cells []T
}

// NewMap creates a map with every cell set to the zero value of T.
func NewMap[T any](lower, upper, cs []float64, opts ...Option) (*Map[T], error) {
	l, err := New(lower, upper, cs, opts...)
	if err != nil {
		return nil, err
	}
	return &Map[T]{Lattice: l, cells: make([]T, l.Len())}, nil
}

// NewMapOn creates a map over an existing lattice.
func NewMapOn[T any](l *Lattice) *Map[T] {
	return &Map[T]{Lattice: l, cells: make([]T, l.Len())}
}

// At returns the value of cell id.
func (m *Map[T]) At(id int) T { return m.cells[id] }

// SetAt sets the value of cell id.
func (m *Map[T]) SetAt(id int, v T) { m.cells[id] = v }

// Get returns the value of the cell containing x.
func (m *Map[T]) Get(x []float64) (T, error) {
	id, err := m.Index(x)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.cells[id], nil
}

// Set sets the value of the cell containing x.
func (m *Map[T]) Set(x []float64, v T) error {
	id, err := m.Index(x)
	if err != nil {
		return err
	}
	m.cells[id] = v
	return nil
}

// Cells exposes the backing slice in row-major order.
func (m *Map[T]) Cells() []T { return m.cells }

// Fill sets every cell to v.
func (m *Map[T]) Fill(v T) {
	for i := range m.cells {
		m.cells[i] = v
	}
}

// Clone returns a deep copy sharing the immutable lattice.
func (m *Map[T]) Clone() *Map[T] {
	return &Map[T]{Lattice: m.Lattice, cells: append([]T(nil), m.cells...)}
}
