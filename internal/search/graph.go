package search

import "math"

// vertex is the search state attached to one grid cell.
type vertex[P any] struct {
	cell     int
	pos      P
	g, rhs   float64
	key      [2]float64
	heapIdx  int
	out, in  []int
	swept    []int
	expanded bool
	alive    bool
}

// edge is a directed transition between two vertices, stored as ids.
type edge[P any] struct {
	from, to int
	cost     float64
	poses    []P
	alive    bool
}

// Graph owns every vertex and edge of one search. Vertices and edges live
// in dense slices; removed slots are tombstoned and reused.
type Graph[P any] struct {
	vertices []vertex[P]
	edges    []edge[P]
	byCell   map[int]int
	freeV    []int
	freeE    []int
	nv, ne   int
}

func newGraph[P any]() *Graph[P] {
	return &Graph[P]{byCell: make(map[int]int)}
}

// lookup returns the vertex id for cell, if materialized.
func (gr *Graph[P]) lookup(cell int) (int, bool) {
	v, ok := gr.byCell[cell]
	return v, ok
}

func (gr *Graph[P]) addVertex(cell int, pos P) int {
	v := vertex[P]{
		cell:    cell,
		pos:     pos,
		g:       math.Inf(1),
		rhs:     math.Inf(1),
		heapIdx: -1,
		alive:   true,
	}
	var id int
	if n := len(gr.freeV); n > 0 {
		id = gr.freeV[n-1]
		gr.freeV = gr.freeV[:n-1]
		gr.vertices[id] = v
	} else {
		id = len(gr.vertices)
		gr.vertices = append(gr.vertices, v)
	}
	gr.byCell[cell] = id
	gr.nv++
	return id
}

// removeVertex deletes v with all incident edges and returns the targets of
// its outgoing edges.
func (gr *Graph[P]) removeVertex(v int) []int {
	vx := &gr.vertices[v]
	targets := make([]int, 0, len(vx.out))
	for len(vx.out) > 0 {
		e := vx.out[len(vx.out)-1]
		targets = append(targets, gr.edges[e].to)
		gr.removeEdge(e)
	}
	for len(vx.in) > 0 {
		gr.removeEdge(vx.in[len(vx.in)-1])
	}
	delete(gr.byCell, vx.cell)
	*vx = vertex[P]{heapIdx: -1}
	gr.freeV = append(gr.freeV, v)
	gr.nv--
	return targets
}

func (gr *Graph[P]) addEdge(from, to int, cost float64, poses []P) int {
	e := edge[P]{from: from, to: to, cost: cost, poses: poses, alive: true}
	var id int
	if n := len(gr.freeE); n > 0 {
		id = gr.freeE[n-1]
		gr.freeE = gr.freeE[:n-1]
		gr.edges[id] = e
	} else {
		id = len(gr.edges)
		gr.edges = append(gr.edges, e)
	}
	gr.vertices[from].out = append(gr.vertices[from].out, id)
	gr.vertices[to].in = append(gr.vertices[to].in, id)
	gr.ne++
	return id
}

func (gr *Graph[P]) removeEdge(e int) {
	ed := &gr.edges[e]
	if !ed.alive {
		return
	}
	gr.vertices[ed.from].out = without(gr.vertices[ed.from].out, e)
	gr.vertices[ed.to].in = without(gr.vertices[ed.to].in, e)
	*ed = edge[P]{}
	gr.freeE = append(gr.freeE, e)
	gr.ne--
}

// without swap-removes x from s.
func without(s []int, x int) []int {
	for i, v := range s {
		if v == x {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
