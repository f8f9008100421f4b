package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mauzec/todo-ds/internal/core"
	"github.com/mauzec/todo-ds/internal/oplog"
	"github.com/mauzec/todo-ds/internal/service"
	"go.uber.org/zap"
)

type todoService interface {
	CreateTask(ctx context.Context, in service.CreateTaskInput) (*core.Task, error)
	GetTask(ctx context.Context, id int) (*core.Task, error)
	ListTasks(ctx context.Context) ([]*core.Task, error)
	UpdateTask(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error)
	DeleteTask(ctx context.Context, id int) error
	Undo(ctx context.Context) (*service.UndoResult, error)
	ProcessNext(ctx context.Context) (*service.ProcessResult, error)
	PeekQueue(ctx context.Context) (*service.QueueView, error)
	History(ctx context.Context) ([]oplog.Descriptor, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

type handler struct {
	todos  todoService
	logger *zap.Logger
}

const handlerTimeout = 30 * time.Second

var errBadTaskID = errors.New("task id must be a positive integer")

func NewHandler(ts todoService, logger *zap.Logger) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handler{todos: ts, logger: logger}
}

func (h *handler) listTasks(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	tasks, err := h.todos.ListTasks(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTasksListResponse(tasks))
}

func (h *handler) createTask(c *gin.Context) {
	req := CreateTaskRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	t, err := h.todos.CreateTask(ctx, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    core.Priority(req.Priority),
	})
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	SetTaskID(c, t.ID)
	h.logger.Info("created task",
		zap.String("reqid", GetRequestID(c)),
		zap.Int("task_id", t.ID),
		zap.String("priority", string(t.Priority)),
	)
	c.JSON(http.StatusCreated, &TaskEnvelope{
		Success: true,
		Task:    NewTaskResponse(t),
		Message: "Task created successfully",
	})
}

func (h *handler) getTask(c *gin.Context) {
	id, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	t, err := h.todos.GetTask(ctx, id)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, &TaskEnvelope{Success: true, Task: NewTaskResponse(t)})
}

func (h *handler) updateTask(c *gin.Context) {
	id, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	req := UpdateTaskRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequestResponse(c, err)
		return
	}

	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	t, err := h.todos.UpdateTask(ctx, id, req.Patch())
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, &TaskEnvelope{
		Success: true,
		Task:    NewTaskResponse(t),
		Message: "Task updated successfully",
	})
}

func (h *handler) deleteTask(c *gin.Context) {
	id, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	if err := h.todos.DeleteTask(ctx, id); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, &TaskEnvelope{Success: true, Message: "Task deleted successfully"})
}

func (h *handler) undo(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	res, err := h.todos.Undo(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	if res.Task != nil {
		SetTaskID(c, res.Task.ID)
	}
	h.logger.Info("undo",
		zap.String("reqid", GetRequestID(c)),
		zap.String("operation", string(res.Operation)),
		zap.Bool("applied", res.Applied),
	)
	c.JSON(http.StatusOK, NewUndoResponse(res))
}

func (h *handler) processNext(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	res, err := h.todos.ProcessNext(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	SetTaskID(c, res.Queued.ID)
	c.JSON(http.StatusOK, NewProcessResponse(res))
}

func (h *handler) peekQueue(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	view, err := h.todos.PeekQueue(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, &QueueResponse{
		Success: true,
		Next:    NewTaskResponse(view.Next),
		Size:    view.Size,
	})
}

func (h *handler) history(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	ops, err := h.todos.History(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewHistoryResponse(ops))
}

func (h *handler) stats(c *gin.Context) {
	ctx, canc := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer canc()

	st, err := h.todos.Stats(ctx)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewStatsResponse(st))
}

func (h *handler) taskIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.badRequestResponse(c, errBadTaskID)
		return 0, false
	}
	SetTaskID(c, id)
	return id, true
}

func (h *handler) badRequestResponse(c *gin.Context, err error) {
	if c != nil && err != nil {
		c.Error(err) //nolint:errcheck
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "bad request",
		"details": err.Error(),
	})
}

func (h *handler) errorResponse(c *gin.Context, err error) {
	if c != nil && err != nil {
		c.Error(err) //nolint:errcheck
	}
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
		})
		return
	}

	if appErr, ok := core.AsAppError(err); ok {
		s := appErr.HTTPStatus()
		p := gin.H{
			"success": false,
			"error":   appErr.PublicMessage(),
			"code":    appErr.Code,
		}
		if appErr.SafeToShow && appErr.Err != nil {
			p["details"] = appErr.Err.Error()
		}
		h.logger.Warn("handler error",
			zap.String("reqid", GetRequestID(c)),
			zap.String("task_id", GetTaskID(c)),
			zap.String("op", appErr.Operation),
			zap.String("error", err.Error()),
		)
		c.AbortWithStatusJSON(s, p)
		return
	}

	h.logger.Error("handler unknown error",
		zap.String("reqid", GetRequestID(c)),
		zap.String("task_id", GetTaskID(c)),
		zap.String("error", err.Error()),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "internal server error",
	})
}
