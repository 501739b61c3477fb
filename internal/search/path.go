package search

// Path is a planned route. Cells holds the center of every visited cell from
// start to goal, Indices their cell ids and Connections the intermediate
// poses of each traversed edge, so len(Connections) == len(Cells)-1.
type Path[P any] struct {
	Cells       []P
	Indices     []int
	Connections [][]P
	Cost        float64
}

// Len returns the number of edges.
func (p Path[P]) Len() int { return len(p.Connections) }

// Empty reports whether the path has no cells.
func (p Path[P]) Empty() bool { return len(p.Cells) == 0 }

// Poses flattens the edge poses into one sequence. Edges without
// intermediate poses contribute their cell centers.
func (p Path[P]) Poses() []P {
	var out []P
	for i, c := range p.Connections {
		if len(c) == 0 {
			if i == 0 {
				out = append(out, p.Cells[0])
			}
			out = append(out, p.Cells[i+1])
			continue
		}
		out = append(out, c...)
	}
	if len(p.Connections) == 0 {
		out = append(out, p.Cells...)
	}
	return out
}
