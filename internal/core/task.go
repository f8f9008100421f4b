package core

import (
	"time"
)

// Task is a single to-do item.
type Task struct {
	ID          int      `json:"task_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Completed   bool     `json:"completed"`

	CreatedAt time.Time `json:"created_at"`
}

func NewTask(id int, title, description string, priority Priority, now time.Time) *Task {
	return &Task{
		ID:          id,
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   now,
	}
}

// TaskPatch holds the fields of an update. Nil fields are left as is.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Completed == nil
}

// PatchFromTask builds a patch that sets every mutable field to the values of t.
func PatchFromTask(t *Task) TaskPatch {
	if t == nil {
		return TaskPatch{}
	}
	title, desc, prio, done := t.Title, t.Description, t.Priority, t.Completed
	return TaskPatch{
		Title:       &title,
		Description: &desc,
		Priority:    &prio,
		Completed:   &done,
	}
}

// Apply sets the non-nil patch fields on t.
func (t *Task) Apply(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

func (t *Task) CloneTask() *Task {
	if t == nil {
		return nil
	}
	ct := *t
	return &ct
}

func CloneTasks(tasks []*Task) []*Task {
	if len(tasks) == 0 {
		return nil
	}

	res := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, t.CloneTask())
	}
	return res
}
