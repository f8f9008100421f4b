// Package oplog keeps a bounded history of task mutations for undo.
package oplog

import (
	"time"

	"github.com/mauzec/todo-ds/internal/core"
)

// DefaultMaxSize is used when a non-positive capacity is given.
const DefaultMaxSize = 10

type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Descriptor records one mutation.
//   - create: After is the created task
//   - update: Before and After are the pre and post images
//   - delete: Before is the removed task
type Descriptor struct {
	Kind   Kind       `json:"kind"`
	TaskID int        `json:"task_id"`
	Before *core.Task `json:"before,omitempty"`
	After  *core.Task `json:"after,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

func (d Descriptor) clone() Descriptor {
	d.Before = d.Before.CloneTask()
	d.After = d.After.CloneTask()
	return d
}

// Log is a LIFO stack that drops its oldest entry when full.
// Not safe for concurrent use.
type Log struct {
	entries []Descriptor
	max     int
}

func New(maxSize int) *Log {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Log{
		entries: make([]Descriptor, 0, maxSize),
		max:     maxSize,
	}
}

// Push puts d on top, evicting the bottom entry first if the log is full.
func (l *Log) Push(d Descriptor) {
	if len(l.entries) >= l.max {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, d.clone())
}

// Pop removes and returns the most recent entry.
func (l *Log) Pop() (Descriptor, bool) {
	n := len(l.entries)
	if n == 0 {
		return Descriptor{}, false
	}
	d := l.entries[n-1]
	l.entries[n-1] = Descriptor{}
	l.entries = l.entries[:n-1]
	return d, true
}

func (l *Log) Peek() (Descriptor, bool) {
	n := len(l.entries)
	if n == 0 {
		return Descriptor{}, false
	}
	return l.entries[n-1].clone(), true
}

// Snapshot returns the entries oldest first.
func (l *Log) Snapshot() []Descriptor {
	res := make([]Descriptor, 0, len(l.entries))
	for _, d := range l.entries {
		res = append(res, d.clone())
	}
	return res
}

func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) Cap() int {
	return l.max
}
