// Package search implements an incremental heuristic graph search in the
// style of Lifelong Planning A* / D* Lite. The engine is generic over a grid
// of discrete cells, a connectivity that generates transitions between them
// and an admissible heuristic. After local map edits only the affected part
// of the search tree is recomputed.
//
// A Search is not safe for concurrent use.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"car-planner/internal/grid"
)

var (
	// ErrOutOfBounds is returned when a point lies outside the grid.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrOccupied is returned when a point lies on a blocked cell.
	ErrOccupied = errors.New("occupied")
	// ErrUnreachable is returned when no path connects start and goal.
	ErrUnreachable = errors.New("unreachable")
	// ErrNoStart is returned by Plan when no valid start is set.
	ErrNoStart = errors.New("no start")
	// ErrNoGoal is returned by Plan when no valid goal is set.
	ErrNoGoal = errors.New("no goal")
	// ErrNotEditable is returned by SetCost when the grid cannot change costs.
	ErrNotEditable = errors.New("grid does not support cost edits")
)

// Grid maps points of type P to discrete cells.
type Grid[P any] interface {
	Index(p P) (int, error)
	Center(id int) P
	Free(id int) bool
	Len() int
}

// Editor is implemented by grids whose cell costs can change. SetCost
// returns the ids of the cells that changed.
type Editor interface {
	SetCost(id int, t grid.Traversability) []int
}

// Transition is a candidate edge produced by a Connectivity.
type Transition[P any] struct {
	To    int
	Cost  float64
	Poses []P
}

// Connectivity generates the outgoing transitions of a cell. The second
// return value lists every cell the generation inspected, accepted or not;
// an edit to any of them requires regenerating the transitions.
type Connectivity[P any] interface {
	Successors(id int) ([]Transition[P], []int)
}

// Heuristic estimates the cost between two points. It must never exceed
// the true cost.
type Heuristic[P any] interface {
	Heur(a, b P) float64
}

// Option configures a Search.
type Option func(*options)

type options struct {
	initExpand bool
	log        *slog.Logger
}

// WithInitExpand materializes the whole graph at construction instead of
// expanding vertices when first reached.
func WithInitExpand(on bool) Option {
	return func(o *options) { o.initExpand = on }
}

// WithLogger sets the logger. By default the engine is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Search is an incremental shortest-path engine over a Grid.
type Search[P any] struct {
	grid  Grid[P]
	conn  Connectivity[P]
	heur  Heuristic[P]
	graph *Graph[P]
	queue *priorityQueue[P]
	sweep map[int]map[int]struct{}
	start int
	goal  int
	log   *slog.Logger
}

// New creates a search engine.
func New[P any](g Grid[P], conn Connectivity[P], heur Heuristic[P], opts ...Option) *Search[P] {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	gr := newGraph[P]()
	s := &Search[P]{
		grid:  g,
		conn:  conn,
		heur:  heur,
		graph: gr,
		queue: &priorityQueue[P]{gr: gr},
		sweep: make(map[int]map[int]struct{}),
		start: -1,
		goal:  -1,
		log:   o.log,
	}
	if o.initExpand {
		for cell := 0; cell < g.Len(); cell++ {
			if !g.Free(cell) {
				continue
			}
			v, ok := gr.lookup(cell)
			if !ok {
				v = gr.addVertex(cell, g.Center(cell))
			}
			if !gr.vertices[v].expanded {
				s.expand(v)
			}
		}
		s.log.Info("expanded graph", "vertices", s.Vertices(), "edges", s.Edges())
	}
	return s
}

// Vertices returns the number of materialized vertices.
func (s *Search[P]) Vertices() int { return s.graph.nv }

// Edges returns the number of materialized edges.
func (s *Search[P]) Edges() int { return s.graph.ne }

// Segments returns the endpoints of every edge for display.
func (s *Search[P]) Segments() [][2]P {
	out := make([][2]P, 0, s.graph.ne)
	for _, e := range s.graph.edges {
		if !e.alive {
			continue
		}
		out = append(out, [2]P{s.graph.vertices[e.from].pos, s.graph.vertices[e.to].pos})
	}
	return out
}

// vertexAt returns the vertex for cell, creating it when needed.
func (s *Search[P]) vertexAt(cell int) int {
	if v, ok := s.graph.lookup(cell); ok {
		return v
	}
	return s.graph.addVertex(cell, s.grid.Center(cell))
}

// resolve projects p to a free cell.
func (s *Search[P]) resolve(p P) (int, error) {
	cell, err := s.grid.Index(p)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}
	if !s.grid.Free(cell) {
		return -1, fmt.Errorf("%w: cell %d", ErrOccupied, cell)
	}
	return cell, nil
}

// SetStart anchors the search at the cell containing p. On failure the
// start is cleared and Plan reports ErrNoStart.
func (s *Search[P]) SetStart(p P) error {
	old := s.start
	cell, err := s.resolve(p)
	if err != nil {
		s.start = -1
		if old >= 0 {
			s.update(old)
		}
		return err
	}
	v := s.vertexAt(cell)
	s.start = v
	s.update(v)
	if old >= 0 && old != v && s.graph.vertices[old].alive {
		s.update(old)
	}
	return nil
}

// SetGoal sets the goal to the cell containing p and reorders the queue for
// the new heuristic. On failure the goal is cleared and Plan reports
// ErrNoGoal.
func (s *Search[P]) SetGoal(p P) error {
	cell, err := s.resolve(p)
	if err != nil {
		s.goal = -1
		return err
	}
	s.goal = s.vertexAt(cell)
	s.rekey()
	return nil
}

// SetCost changes the traversability of the cell containing p and marks the
// affected vertices inconsistent. The change propagates on the next Plan.
func (s *Search[P]) SetCost(p P, t grid.Traversability) error {
	ed, ok := s.grid.(Editor)
	if !ok {
		return ErrNotEditable
	}
	cell, err := s.grid.Index(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}
	s.Notify(ed.SetCost(cell, t)...)
	return nil
}

// heuristic returns the estimate from v to the goal, zero without a goal.
func (s *Search[P]) heuristic(v int) float64 {
	if s.goal < 0 {
		return 0
	}
	return s.heur.Heur(s.graph.vertices[v].pos, s.graph.vertices[s.goal].pos)
}

func (s *Search[P]) calcKey(v int) [2]float64 {
	vx := &s.graph.vertices[v]
	m := math.Min(vx.g, vx.rhs)
	return [2]float64{m + s.heuristic(v), m}
}
