package queue

import "container/heap"

// Compile time check to ensure itemHeap satisfies the heap interface.
var _ heap.Interface = (*itemHeap)(nil)

type heapEntry struct {
	item Item
	seq  uint64 // insertion order, breaks priority ties
}

// itemHeap is a min-heap on (Priority, seq).
type itemHeap []heapEntry

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority < h[j].item.Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(heapEntry))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = heapEntry{} // Avoid memory leak
	*h = old[:n-1]
	return e
}
