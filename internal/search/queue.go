package search

// less compares priority keys lexicographically.
func less(a, b [2]float64) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// priorityQueue implements heap.Interface over vertex ids, keeping each
// vertex's heap position up to date for removal and key changes.
type priorityQueue[P any] struct {
	ids []int
	gr  *Graph[P]
}

func (pq *priorityQueue[P]) Len() int { return len(pq.ids) }

func (pq *priorityQueue[P]) Less(i, j int) bool {
	return less(pq.gr.vertices[pq.ids[i]].key, pq.gr.vertices[pq.ids[j]].key)
}

func (pq *priorityQueue[P]) Swap(i, j int) {
	pq.ids[i], pq.ids[j] = pq.ids[j], pq.ids[i]
	pq.gr.vertices[pq.ids[i]].heapIdx = i
	pq.gr.vertices[pq.ids[j]].heapIdx = j
}

func (pq *priorityQueue[P]) Push(x any) {
	v := x.(int)
	pq.gr.vertices[v].heapIdx = len(pq.ids)
	pq.ids = append(pq.ids, v)
}

func (pq *priorityQueue[P]) Pop() any {
	n := len(pq.ids)
	v := pq.ids[n-1]
	pq.ids = pq.ids[:n-1]
	pq.gr.vertices[v].heapIdx = -1
	return v
}

// top returns the id with the smallest key without removing it.
func (pq *priorityQueue[P]) top() (int, bool) {
	if len(pq.ids) == 0 {
		return -1, false
	}
	return pq.ids[0], true
}
