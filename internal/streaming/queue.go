package streaming

import (
	"container/heap"

	"terrastream/internal/terrain"
)

type entry struct {
	coord    terrain.Coord
	priority int
	seq      uint64
	index    int
}

type entries []*entry

func (e entries) Len() int { return len(e) }

// Lower priority first; ties keep insertion order.
func (e entries) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority < e[j].priority
	}
	return e[i].seq < e[j].seq
}

func (e entries) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
	e[i].index = i
	e[j].index = j
}

func (e *entries) Push(x any) {
	it := x.(*entry)
	it.index = len(*e)
	*e = append(*e, it)
}

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*e = old[:n-1]
	return it
}

// Queue is a priority-ordered set of tile coordinates. Each coordinate is
// queued at most once; pushing it again only updates its priority.
type Queue struct {
	items entries
	byKey map[terrain.Coord]*entry
	seq   uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{byKey: make(map[terrain.Coord]*entry)}
}

// Push queues c, or re-prioritises it if already queued.
func (q *Queue) Push(c terrain.Coord, priority int) {
	if it, ok := q.byKey[c]; ok {
		if it.priority != priority {
			it.priority = priority
			heap.Fix(&q.items, it.index)
		}
		return
	}
	q.seq++
	it := &entry{coord: c, priority: priority, seq: q.seq}
	heap.Push(&q.items, it)
	q.byKey[c] = it
}

// Pop removes and returns the coordinate with the lowest priority.
func (q *Queue) Pop() (terrain.Coord, bool) {
	if len(q.items) == 0 {
		return terrain.Coord{}, false
	}
	it := heap.Pop(&q.items).(*entry)
	delete(q.byKey, it.coord)
	return it.coord, true
}

// Remove drops c from the queue if present.
func (q *Queue) Remove(c terrain.Coord) bool {
	it, ok := q.byKey[c]
	if !ok {
		return false
	}
	heap.Remove(&q.items, it.index)
	delete(q.byKey, c)
	return true
}

func (q *Queue) Contains(c terrain.Coord) bool {
	_, ok := q.byKey[c]
	return ok
}

func (q *Queue) Len() int { return len(q.items) }

// Clear empties the queue.
func (q *Queue) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	clear(q.byKey)
}
