// Package review holds the in-memory work list of cards waiting to be
// answered in a study session.
package review

import (
	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Queue is a first-in-first-out list of card ids. The zero value is not
// usable; create one with NewQueue.
type Queue struct {
	items *linkedlistqueue.Queue
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{items: linkedlistqueue.New()}
}

// Load replaces the queue contents with ids, keeping their order.
func (q *Queue) Load(ids []int64) {
	q.items.Clear()
	for _, id := range ids {
		q.items.Enqueue(id)
	}
}

// Peek returns the head without removing it.
func (q *Queue) Peek() (int64, error) {
	v, ok := q.items.Peek()
	if !ok {
		return 0, domain.ErrQueueEmpty
	}
	return v.(int64), nil
}

// Pop removes and returns the head.
func (q *Queue) Pop() (int64, error) {
	v, ok := q.items.Dequeue()
	if !ok {
		return 0, domain.ErrQueueEmpty
	}
	return v.(int64), nil
}

// Len returns the number of ids left.
func (q *Queue) Len() int {
	return q.items.Size()
}

// IDs returns the remaining ids, head first.
func (q *Queue) IDs() []int64 {
	values := q.items.Values()
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.(int64))
	}
	return ids
}

// Clear drops every id.
func (q *Queue) Clear() {
	q.items.Clear()
}
