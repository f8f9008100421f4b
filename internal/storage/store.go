package storage

import (
	"github.com/mauzec/todo-ds/internal/core"
)

// TaskStore describes the in-memory collection of live tasks.
// Implementations are NOT safe for concurrent use: callers serialize access.
//
// Returned tasks are always detached copies, changing them does not touch the store.
type TaskStore interface {
	// Add creates a task with the next id and puts it first.
	Add(title, description string, priority core.Priority) (*core.Task, error)
	// List returns all tasks, most recent first.
	List() []*core.Task
	Find(id int) (*core.Task, bool)
	// Update applies the non-nil patch fields. Returns false if id is absent.
	Update(id int, patch core.TaskPatch) (*core.Task, bool)
	// Delete unlinks the task. Returns false if id is absent.
	Delete(id int) bool
	// Restore puts back a deleted task with its original id.
	Restore(task *core.Task) error
	Len() int
}
