package queue

import (
	"github.com/mauzec/todo-ds/internal/core"
)

// compactAt is the number of consumed slots after which the backing slice is shifted.
const compactAt = 32

// ProcessingQueue is an unbounded FIFO of task snapshots waiting to be processed.
// It does not own the tasks: entries may be stale relative to the store.
// Not safe for concurrent use.
type ProcessingQueue struct {
	items []*core.Task
	head  int
}

func New() *ProcessingQueue {
	return &ProcessingQueue{}
}

// Enqueue appends a copy of task to the tail.
func (q *ProcessingQueue) Enqueue(task *core.Task) {
	if task == nil {
		return
	}
	q.items = append(q.items, task.CloneTask())
}

// Dequeue removes the head. O(1) amortized.
func (q *ProcessingQueue) Dequeue() (*core.Task, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactAt && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return t, true
}

func (q *ProcessingQueue) Peek() (*core.Task, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	return q.items[q.head].CloneTask(), true
}

func (q *ProcessingQueue) Size() int {
	return len(q.items) - q.head
}

// Snapshot returns the waiting tasks head first.
func (q *ProcessingQueue) Snapshot() []*core.Task {
	return core.CloneTasks(q.items[q.head:])
}
