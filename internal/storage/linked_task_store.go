package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/mauzec/todo-ds/internal/core"
)

type taskNode struct {
	task *core.Task
	next *taskNode
}

// LinkedTaskStore keeps tasks in a singly linked list with the newest at the head.
// Lookups walk the list, there is no index by id.
type LinkedTaskStore struct {
	head   *taskNode
	size   int
	nextID int

	now func() time.Time
}

func NewLinkedTaskStore(now func() time.Time) *LinkedTaskStore {
	if now == nil {
		now = time.Now
	}
	return &LinkedTaskStore{nextID: 1, now: now}
}

// Add inserts a new task at the head. O(1).
func (s *LinkedTaskStore) Add(title, description string, priority core.Priority) (*core.Task, error) {
	const op = "storage.LinkedTaskStore.Add"

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, core.NewValidationError("title is required", nil, op)
	}
	if priority == "" {
		priority = core.DefaultPriority
	}
	if !priority.Valid() {
		return nil, core.NewValidationError("priority must be one of high, medium, low", nil, op).
			WithMeta("priority", string(priority))
	}

	t := core.NewTask(s.nextID, title, description, priority, s.now().UTC())
	s.head = &taskNode{task: t, next: s.head}
	s.nextID++
	s.size++

	return t.CloneTask(), nil
}

// List walks the list from head to tail. O(n).
func (s *LinkedTaskStore) List() []*core.Task {
	res := make([]*core.Task, 0, s.size)
	for n := s.head; n != nil; n = n.next {
		res = append(res, n.task.CloneTask())
	}
	return res
}

func (s *LinkedTaskStore) Find(id int) (*core.Task, bool) {
	n := s.findNode(id)
	if n == nil {
		return nil, false
	}
	return n.task.CloneTask(), true
}

func (s *LinkedTaskStore) Update(id int, patch core.TaskPatch) (*core.Task, bool) {
	n := s.findNode(id)
	if n == nil {
		return nil, false
	}
	n.task.Apply(patch)
	return n.task.CloneTask(), true
}

func (s *LinkedTaskStore) Delete(id int) bool {
	if s.head == nil {
		return false
	}
	if s.head.task.ID == id {
		s.head = s.head.next
		s.size--
		return true
	}
	for prev := s.head; prev.next != nil; prev = prev.next {
		if prev.next.task.ID == id {
			prev.next = prev.next.next
			s.size--
			return true
		}
	}
	return false
}

// Restore links a previously deleted task back with its id and creation time.
// Ids grow with creation time, so the list stays ordered by id descending and
// the task lands where it would have been had it never been deleted.
func (s *LinkedTaskStore) Restore(task *core.Task) error {
	const op = "storage.LinkedTaskStore.Restore"

	if task == nil {
		return core.NewInternalError("required task", nil, op)
	}
	if task.ID <= 0 || task.ID >= s.nextID {
		return core.NewValidationError("task id was never issued", nil, op).
			WithMeta("task_id", strconv.Itoa(task.ID))
	}
	if s.findNode(task.ID) != nil {
		return core.NewTaskConflictError(task.ID, op)
	}

	node := &taskNode{task: task.CloneTask()}
	if s.head == nil || s.head.task.ID < task.ID {
		node.next = s.head
		s.head = node
		s.size++
		return nil
	}
	prev := s.head
	for prev.next != nil && prev.next.task.ID > task.ID {
		prev = prev.next
	}
	node.next = prev.next
	prev.next = node
	s.size++
	return nil
}

func (s *LinkedTaskStore) Len() int {
	return s.size
}

func (s *LinkedTaskStore) findNode(id int) *taskNode {
	for n := s.head; n != nil; n = n.next {
		if n.task.ID == id {
			return n
		}
	}
	return nil
}
