package analytics

import (
	"container/list"
	"sync"
)

// Queue represents a thread-safe FIFO queue for Hit items.
type Queue struct {
	mu   sync.Mutex
	list *list.List
}

// NewQueue creates and returns a new empty Queue.
func NewQueue() *Queue {
	return &Queue{list: list.New()}
}

// Enqueue adds a Hit to the end of the queue.
func (q *Queue) Enqueue(hit Hit) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.PushBack(hit)
}

// PushFront puts hits back at the head of the queue, keeping their order.
func (q *Queue) PushFront(hits []Hit) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(hits) - 1; i >= 0; i-- {
		q.list.PushFront(hits[i])
	}
}

// IsEmpty reports whether the queue has no elements.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len() == 0
}

// Len returns the number of Hits currently in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}

// Drain removes and returns all Hits, preserving order.
func (q *Queue) Drain() []Hit {
	q.mu.Lock()
	defer q.mu.Unlock()
	hits := make([]Hit, 0, q.list.Len())
	for e := q.list.Front(); e != nil; e = e.Next() {
		hits = append(hits, e.Value.(Hit))
	}
	q.list.Init()
	return hits
}

// ToSlice returns all Hits in the queue as a slice, preserving order.
func (q *Queue) ToSlice() []Hit {
	q.mu.Lock()
	defer q.mu.Unlock()
	hits := make([]Hit, 0, q.list.Len())
	for e := q.list.Front(); e != nil; e = e.Next() {
		hits = append(hits, e.Value.(Hit))
	}
	return hits
}

// LoadFromSlice replaces the queue contents with Hits from the provided slice.
func (q *Queue) LoadFromSlice(hits []Hit) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Init()
	for _, hit := range hits {
		q.list.PushBack(hit)
	}
}
