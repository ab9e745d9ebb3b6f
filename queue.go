package delay

import "container/heap"

// tickQueue implements container/heap.Interface for pending entries, sorted
// by Tick (earliest first). Each entry tracks its own heap index so that a
// cancelled entry can be removed without a scan
type tickQueue []*entry

func (q tickQueue) Len() int           { return len(q) }
func (q tickQueue) Less(i, j int) bool { return q[i].event.Tick < q[j].event.Tick }

func (q tickQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *tickQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *tickQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// peek returns the entry with the earliest Tick, or nil if empty
func (q tickQueue) peek() *entry {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (q *tickQueue) push(e *entry) {
	heap.Push(q, e)
}

func (q *tickQueue) pop() *entry {
	return heap.Pop(q).(*entry)
}

func (q *tickQueue) remove(e *entry) {
	if e.index >= 0 && e.index < len(*q) && (*q)[e.index] == e {
		heap.Remove(q, e.index)
	}
}
