package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mauzec/todo-ds/internal/aggregate"
	"github.com/mauzec/todo-ds/internal/core"
	"github.com/mauzec/todo-ds/internal/oplog"
	"github.com/mauzec/todo-ds/internal/queue"
	"github.com/mauzec/todo-ds/internal/storage"
	"go.uber.org/zap"
)

// TodoService ties the task store, the undo log and the processing queue together.
// It does no locking: one caller at a time.
type TodoService struct {
	store storage.TaskStore
	log   *oplog.Log
	queue *queue.ProcessingQueue

	now    func() time.Time
	logger *zap.Logger
}

type TodoServiceOptions struct {
	Store storage.TaskStore      `validate:"required"`
	Log   *oplog.Log             `validate:"required"`
	Queue *queue.ProcessingQueue `validate:"required"`

	Now    func() time.Time
	Logger *zap.Logger
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    core.Priority
}

// UndoResult describes what an Undo call reverted.
type UndoResult struct {
	Operation oplog.Kind
	Task      *core.Task
	// Applied is false when the task was gone and there was nothing to revert.
	Applied bool
	Message string
}

type ProcessResult struct {
	Queued *core.Task
	// Processed is nil if the queued task no longer exists.
	Processed *core.Task
	Remaining int
	Message   string
}

type QueueView struct {
	Next *core.Task
	Size int
}

type Stats struct {
	aggregate.Stats

	UndoAvailable int
	QueueSize     int
	StoreSize     int
}

func NewTodoService(opts *TodoServiceOptions) (*TodoService, error) {
	const op = "service.NewTodoService"
	if opts == nil {
		return nil, internalError(op, "options required", nil)
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, internalError(op, "bad options", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoService{
		store:  opts.Store,
		log:    opts.Log,
		queue:  opts.Queue,
		now:    now,
		logger: logger,
	}, nil
}

func (s *TodoService) CreateTask(ctx context.Context, in CreateTaskInput) (*core.Task, error) {
	const op = "service.TodoService.CreateTask"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	t, err := s.store.Add(in.Title, in.Description, in.Priority)
	if err != nil {
		return nil, tryAsAppError(err, op)
	}

	s.log.Push(oplog.Descriptor{
		Kind:      oplog.KindCreate,
		TaskID:    t.ID,
		After:     t,
		Timestamp: s.now().UTC(),
	})
	if t.Priority == core.PriorityHigh {
		s.queue.Enqueue(t)
		s.logger.Debug("task queued for processing",
			zap.Int("task_id", t.ID),
			zap.Int("queue_size", s.queue.Size()),
		)
	}

	return t, nil
}

// Seed adds tasks straight to the store without logging or queueing them.
func (s *TodoService) Seed(ctx context.Context, tasks ...CreateTaskInput) error {
	const op = "service.TodoService.Seed"

	for _, in := range tasks {
		if err := ctx.Err(); err != nil {
			return internalError(op, "ctx error", err)
		}
		if _, err := s.store.Add(in.Title, in.Description, in.Priority); err != nil {
			return tryAsAppError(err, op)
		}
	}
	return nil
}

func (s *TodoService) GetTask(ctx context.Context, id int) (*core.Task, error) {
	const op = "service.TodoService.GetTask"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	t, ok := s.store.Find(id)
	if !ok {
		return nil, core.NewTaskNotFoundError(id, op)
	}
	return t, nil
}

// ListTasks returns all tasks, incomplete first, then by priority.
func (s *TodoService) ListTasks(ctx context.Context) ([]*core.Task, error) {
	const op = "service.TodoService.ListTasks"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	return aggregate.Sort(s.store.List()), nil
}

func (s *TodoService) UpdateTask(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error) {
	const op = "service.TodoService.UpdateTask"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	if err := validatePatch(&patch, op); err != nil {
		return nil, err
	}

	before, ok := s.store.Find(id)
	if !ok {
		return nil, core.NewTaskNotFoundError(id, op)
	}
	after, ok := s.store.Update(id, patch)
	if !ok {
		return nil, core.NewTaskNotFoundError(id, op)
	}

	s.log.Push(oplog.Descriptor{
		Kind:      oplog.KindUpdate,
		TaskID:    id,
		Before:    before,
		After:     after,
		Timestamp: s.now().UTC(),
	})
	return after, nil
}

func (s *TodoService) DeleteTask(ctx context.Context, id int) error {
	const op = "service.TodoService.DeleteTask"

	if err := ctx.Err(); err != nil {
		return internalError(op, "ctx error", err)
	}

	before, ok := s.store.Find(id)
	if !ok {
		return core.NewTaskNotFoundError(id, op)
	}
	if !s.store.Delete(id) {
		return internalError(op, "failed to delete task", nil)
	}

	s.log.Push(oplog.Descriptor{
		Kind:      oplog.KindDelete,
		TaskID:    id,
		Before:    before,
		Timestamp: s.now().UTC(),
	})
	return nil
}

// Undo pops the latest operation and reverts it. A deleted task comes back
// with its original id.
func (s *TodoService) Undo(ctx context.Context) (*UndoResult, error) {
	const op = "service.TodoService.Undo"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	d, ok := s.log.Pop()
	if !ok {
		return nil, core.NewEmptyError("No operations to undo", op)
	}

	res := &UndoResult{Operation: d.Kind}
	switch d.Kind {
	case oplog.KindCreate:
		res.Task = d.After
		res.Applied = s.store.Delete(d.TaskID)
		res.Message = fmt.Sprintf("Undid creation of task '%s'", d.After.Title)
	case oplog.KindUpdate:
		res.Task, res.Applied = s.store.Update(d.TaskID, core.PatchFromTask(d.Before))
		if !res.Applied {
			res.Task = d.Before
		}
		res.Message = fmt.Sprintf("Undid update of task '%s'", d.Before.Title)
	case oplog.KindDelete:
		res.Task = d.Before
		if err := s.store.Restore(d.Before); err != nil {
			s.logger.Warn("cant restore deleted task",
				zap.Int("task_id", d.TaskID),
				zap.Error(err),
			)
		} else {
			res.Applied = true
		}
		res.Message = fmt.Sprintf("Undid deletion of task '%s'", d.Before.Title)
	default:
		return nil, internalError(op, "unknown operation kind", fmt.Errorf("kind %q", d.Kind))
	}

	if !res.Applied {
		s.logger.Info("undo found nothing to revert",
			zap.String("kind", string(d.Kind)),
			zap.Int("task_id", d.TaskID),
		)
	}
	return res, nil
}

// ProcessNext takes the oldest queued task and marks it completed.
// A task deleted since it was queued is skipped without error.
func (s *TodoService) ProcessNext(ctx context.Context) (*ProcessResult, error) {
	const op = "service.TodoService.ProcessNext"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	queued, ok := s.queue.Dequeue()
	if !ok {
		return nil, core.NewEmptyError("No tasks in processing queue", op)
	}

	done := true
	processed, ok := s.store.Update(queued.ID, core.TaskPatch{Completed: &done})
	if !ok {
		s.logger.Info("queued task no longer exists",
			zap.Int("task_id", queued.ID),
		)
		processed = nil
	}

	return &ProcessResult{
		Queued:    queued,
		Processed: processed,
		Remaining: s.queue.Size(),
		Message:   fmt.Sprintf("Processed task: %s", queued.Title),
	}, nil
}

func (s *TodoService) PeekQueue(ctx context.Context) (*QueueView, error) {
	const op = "service.TodoService.PeekQueue"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	next, _ := s.queue.Peek()
	return &QueueView{Next: next, Size: s.queue.Size()}, nil
}

// History returns the undo log, oldest first.
func (s *TodoService) History(ctx context.Context) ([]oplog.Descriptor, error) {
	const op = "service.TodoService.History"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	return s.log.Snapshot(), nil
}

func (s *TodoService) Stats(ctx context.Context) (*Stats, error) {
	const op = "service.TodoService.Stats"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	return &Stats{
		Stats:         aggregate.ComputeStats(s.store.List()),
		UndoAvailable: s.log.Len(),
		QueueSize:     s.queue.Size(),
		StoreSize:     s.store.Len(),
	}, nil
}

func validatePatch(p *core.TaskPatch, op string) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return validationError(op, "title cant be empty")
		}
		p.Title = &title
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return validationError(op, "priority must be one of high, medium, low")
	}
	return nil
}

func tryAsAppError(err error, op string) error {
	if appErr, ok := core.AsAppError(err); ok {
		return appErr.WithOper(op)
	}
	return internalError(op, "unexpected error", err)
}

func validationError(op, msg string) error {
	return core.NewAppErrorBuilder(core.ErrorCodeValidation).
		Message(msg).
		SafeToShow(true).
		Oper(op).
		Build()
}

func internalError(op, msg string, err error) error {
	return core.NewAppErrorBuilder(core.ErrorCodeInternal).
		Message(msg).
		Err(err).
		SafeToShow(false).
		Oper(op).
		Build()
}
