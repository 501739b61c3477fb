package search

import (
	"container/heap"
	"slices"
)

// Notify tells the engine that the cells with the given ids changed validity
// or cost. Vertices on cells that became invalid are removed, every vertex
// whose transitions inspected one of the cells is re-expanded, and the
// affected vertices are queued. Nothing propagates until the next Plan.
func (s *Search[P]) Notify(cells ...int) {
	if len(cells) == 0 {
		return
	}
	gr := s.graph
	dirty := make(map[int]struct{})
	sources := make(map[int]struct{})

	for _, c := range cells {
		for v := range s.sweep[c] {
			sources[v] = struct{}{}
		}
		v, ok := gr.lookup(c)
		if !ok || s.grid.Free(c) || v == s.start || v == s.goal {
			continue
		}
		if vx := &gr.vertices[v]; vx.heapIdx >= 0 {
			heap.Remove(s.queue, vx.heapIdx)
		}
		s.unsweep(v)
		for _, t := range gr.removeVertex(v) {
			dirty[t] = struct{}{}
		}
		delete(sources, v)
		delete(dirty, v)
	}

	// map iteration order is random; re-expand in id order so edge ids are
	// assigned deterministically
	order := make([]int, 0, len(sources))
	for v := range sources {
		if gr.vertices[v].alive && gr.vertices[v].expanded {
			order = append(order, v)
		}
	}
	slices.Sort(order)

	for _, v := range order {
		vx := &gr.vertices[v]
		for len(vx.out) > 0 {
			e := vx.out[len(vx.out)-1]
			dirty[gr.edges[e].to] = struct{}{}
			gr.removeEdge(e)
		}
		s.unsweep(v)
		for _, t := range s.expand(v) {
			dirty[t] = struct{}{}
		}
		notifications.Inc()
	}

	targets := make([]int, 0, len(dirty))
	for v := range dirty {
		targets = append(targets, v)
	}
	slices.Sort(targets)
	for _, v := range targets {
		if gr.vertices[v].alive {
			s.update(v)
		}
	}
	s.log.Debug("applied map edits", "cells", len(cells), "reexpanded", len(order), "updated", len(targets))
}
