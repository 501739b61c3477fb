package search

import (
	"container/heap"
	"fmt"
	"math"
	"time"
)

// update recomputes the one-step lookahead of v and its queue membership.
func (s *Search[P]) update(v int) {
	gr := s.graph
	vx := &gr.vertices[v]
	if !vx.alive {
		return
	}
	if v == s.start {
		vx.rhs = 0
	} else {
		rhs := math.Inf(1)
		for _, e := range vx.in {
			ed := &gr.edges[e]
			if c := gr.vertices[ed.from].g + ed.cost; c < rhs {
				rhs = c
			}
		}
		vx.rhs = rhs
	}
	if vx.heapIdx >= 0 {
		heap.Remove(s.queue, vx.heapIdx)
	}
	if vx.g != vx.rhs {
		vx.key = s.calcKey(v)
		heap.Push(s.queue, v)
	}
}

// rekey recomputes every queued key, e.g. after the goal moved.
func (s *Search[P]) rekey() {
	for _, v := range s.queue.ids {
		s.graph.vertices[v].key = s.calcKey(v)
	}
	heap.Init(s.queue)
}

// expand materializes the outgoing edges of v.
func (s *Search[P]) expand(v int) []int {
	cell := s.graph.vertices[v].cell
	trans, swept := s.conn.Successors(cell)
	targets := make([]int, 0, len(trans))
	for _, t := range trans {
		to := s.vertexAt(t.To)
		s.graph.addEdge(v, to, t.Cost, t.Poses)
		targets = append(targets, to)
	}
	vx := &s.graph.vertices[v]
	vx.expanded = true
	vx.swept = swept
	for _, c := range swept {
		m, ok := s.sweep[c]
		if !ok {
			m = make(map[int]struct{})
			s.sweep[c] = m
		}
		m[v] = struct{}{}
	}
	expansions.Inc()
	return targets
}

// unsweep drops v from the sweep index.
func (s *Search[P]) unsweep(v int) {
	vx := &s.graph.vertices[v]
	for _, c := range vx.swept {
		if m, ok := s.sweep[c]; ok {
			delete(m, v)
			if len(m) == 0 {
				delete(s.sweep, c)
			}
		}
	}
	vx.swept = nil
}

func (s *Search[P]) done() bool {
	top, ok := s.queue.top()
	if !ok {
		return true
	}
	gx := &s.graph.vertices[s.goal]
	return !less(s.graph.vertices[top].key, s.calcKey(s.goal)) && gx.rhs == gx.g
}

// computeShortestPath propagates inconsistencies until the goal is
// consistent and no queued vertex can improve it.
func (s *Search[P]) computeShortestPath() int {
	gr := s.graph
	pops := 0
	for !s.done() {
		u := heap.Pop(s.queue).(int)
		pops++
		if !gr.vertices[u].expanded {
			s.expand(u)
		}
		ux := &gr.vertices[u]
		if ux.g > ux.rhs {
			ux.g = ux.rhs
			for _, e := range ux.out {
				s.update(gr.edges[e].to)
			}
			continue
		}
		ux.g = math.Inf(1)
		s.update(u)
		for _, e := range gr.vertices[u].out {
			s.update(gr.edges[e].to)
		}
	}
	return pops
}

// Plan converges the search and returns the cheapest path from start to
// goal. When the goal is unreachable the partially built graph is kept.
func (s *Search[P]) Plan() (Path[P], error) {
	start := time.Now()
	defer func() { planDuration.Observe(time.Since(start).Seconds()) }()
	if s.start < 0 {
		plansTotal.WithLabelValues("no_start").Inc()
		return Path[P]{}, ErrNoStart
	}
	if s.goal < 0 {
		plansTotal.WithLabelValues("no_goal").Inc()
		return Path[P]{}, ErrNoGoal
	}
	if c := s.graph.vertices[s.start].cell; !s.grid.Free(c) {
		plansTotal.WithLabelValues("no_start").Inc()
		return Path[P]{}, fmt.Errorf("%w: %w: cell %d", ErrNoStart, ErrOccupied, c)
	}
	if c := s.graph.vertices[s.goal].cell; !s.grid.Free(c) {
		plansTotal.WithLabelValues("no_goal").Inc()
		return Path[P]{}, fmt.Errorf("%w: %w: cell %d", ErrNoGoal, ErrOccupied, c)
	}

	pops := s.computeShortestPath()

	if math.IsInf(s.graph.vertices[s.goal].g, 1) {
		plansTotal.WithLabelValues("unreachable").Inc()
		s.log.Info("goal unreachable", "expansions", pops, "vertices", s.Vertices(), "edges", s.Edges())
		return Path[P]{}, ErrUnreachable
	}
	path, err := s.assemble()
	if err != nil {
		plansTotal.WithLabelValues("unreachable").Inc()
		return Path[P]{}, err
	}
	plansTotal.WithLabelValues("ok").Inc()
	s.log.Info("planned path",
		"expansions", pops,
		"edges", len(path.Connections),
		"cost", path.Cost,
		"elapsed", time.Since(start),
	)
	return path, nil
}

// assemble walks from the goal back to the start along predecessors that
// minimize g + edge cost.
func (s *Search[P]) assemble() (Path[P], error) {
	gr := s.graph
	var edges []int
	cur := s.goal
	for steps := 0; cur != s.start; steps++ {
		if steps > gr.nv {
			return Path[P]{}, fmt.Errorf("%w: predecessor chain does not reach start", ErrUnreachable)
		}
		best, bestCost := -1, math.Inf(1)
		for _, e := range gr.vertices[cur].in {
			ed := &gr.edges[e]
			if c := gr.vertices[ed.from].g + ed.cost; c < bestCost {
				best, bestCost = e, c
			}
		}
		if best < 0 {
			return Path[P]{}, fmt.Errorf("%w: vertex %d has no predecessor", ErrUnreachable, cur)
		}
		edges = append(edges, best)
		cur = gr.edges[best].from
	}

	var path Path[P]
	sv := &gr.vertices[s.start]
	path.Cells = append(path.Cells, sv.pos)
	path.Indices = append(path.Indices, sv.cell)
	for i := len(edges) - 1; i >= 0; i-- {
		ed := &gr.edges[edges[i]]
		to := &gr.vertices[ed.to]
		path.Cells = append(path.Cells, to.pos)
		path.Indices = append(path.Indices, to.cell)
		path.Connections = append(path.Connections, ed.poses)
		path.Cost += ed.cost
	}
	return path, nil
}
