package queue

import (
	"container/heap"
	"context"
	"sync"
)

// MemoryQueue is an in-process Queue ordered by Priority, FIFO within a
// priority.
type MemoryQueue struct {
	mu   sync.Mutex
	heap itemHeap
	seq  uint64
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	item.Data = append([]byte(nil), item.Data...)
	heap.Push(&q.heap, heapEntry{item: item, seq: q.seq})
	q.seq++
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return nil, ErrEmpty
	}
	e := heap.Pop(&q.heap).(heapEntry)
	return &e.item, nil
}

// Len returns the number of pending items.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
