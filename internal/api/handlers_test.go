package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mauzec/todo-ds/internal/core"
	"github.com/mauzec/todo-ds/internal/oplog"
	"github.com/mauzec/todo-ds/internal/service"
	"github.com/stretchr/testify/require"
)

type mockTodoService struct {
	LastCreate service.CreateTaskInput
	LastID     int
	LastPatch  core.TaskPatch

	CreateTaskF  func(ctx context.Context, in service.CreateTaskInput) (*core.Task, error)
	GetTaskF     func(ctx context.Context, id int) (*core.Task, error)
	ListTasksF   func(ctx context.Context) ([]*core.Task, error)
	UpdateTaskF  func(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error)
	DeleteTaskF  func(ctx context.Context, id int) error
	UndoF        func(ctx context.Context) (*service.UndoResult, error)
	ProcessNextF func(ctx context.Context) (*service.ProcessResult, error)
	PeekQueueF   func(ctx context.Context) (*service.QueueView, error)
	HistoryF     func(ctx context.Context) ([]oplog.Descriptor, error)
	StatsF       func(ctx context.Context) (*service.Stats, error)
}

func (m *mockTodoService) CreateTask(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
	m.LastCreate = in
	return m.CreateTaskF(ctx, in)
}
func (m *mockTodoService) GetTask(ctx context.Context, id int) (*core.Task, error) {
	m.LastID = id
	return m.GetTaskF(ctx, id)
}
func (m *mockTodoService) ListTasks(ctx context.Context) ([]*core.Task, error) {
	return m.ListTasksF(ctx)
}
func (m *mockTodoService) UpdateTask(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error) {
	m.LastID = id
	m.LastPatch = patch
	return m.UpdateTaskF(ctx, id, patch)
}
func (m *mockTodoService) DeleteTask(ctx context.Context, id int) error {
	m.LastID = id
	return m.DeleteTaskF(ctx, id)
}
func (m *mockTodoService) Undo(ctx context.Context) (*service.UndoResult, error) {
	return m.UndoF(ctx)
}
func (m *mockTodoService) ProcessNext(ctx context.Context) (*service.ProcessResult, error) {
	return m.ProcessNextF(ctx)
}
func (m *mockTodoService) PeekQueue(ctx context.Context) (*service.QueueView, error) {
	return m.PeekQueueF(ctx)
}
func (m *mockTodoService) History(ctx context.Context) ([]oplog.Descriptor, error) {
	return m.HistoryF(ctx)
}
func (m *mockTodoService) Stats(ctx context.Context) (*service.Stats, error) {
	return m.StatsF(ctx)
}

var testTask = &core.Task{
	ID:          7,
	Title:       "simon",
	Description: "says",
	Priority:    core.PriorityHigh,
	CreatedAt:   time.Date(2025, 10, 9, 12, 0, 0, 0, time.UTC),
}

func newTestRouter(svc todoService) *gin.Engine {
	r := gin.New()
	setupRouter(r, NewHandler(svc, nil))
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	p := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, false, p["success"])
	return p
}

func TestCreateTaskAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		CreateTaskF: func(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
			return testTask.CloneTask(), nil
		},
	}
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodPost, "/api/tasks",
		`{"title":"simon","description":"says","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := struct {
		Success bool          `json:"success"`
		Task    *TaskResponse `json:"task"`
		Message string        `json:"message"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 7, resp.Task.TaskID)
	require.Equal(t, "high", resp.Task.Priority)
	require.True(t, testTask.CreatedAt.Equal(resp.Task.CreatedAt))
	require.Equal(t, "Task created successfully", resp.Message)

	require.Equal(t, service.CreateTaskInput{
		Title:       "simon",
		Description: "says",
		Priority:    core.PriorityHigh,
	}, svc.LastCreate)
}

func TestCreateTaskAPI_CreatedAtIsISO8601(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		CreateTaskF: func(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
			return testTask.CloneTask(), nil
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodPost, "/api/tasks", `{"title":"simon"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"created_at":"2025-10-09T12:00:00Z"`)
}

func TestCreateTaskAPI_BadPriority(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		CreateTaskF: func(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodPost, "/api/tasks",
		`{"title":"simon","priority":"urgent"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeError(t, rec)
}

func TestCreateTaskAPI_ValidationError(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		CreateTaskF: func(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
			return nil, core.NewValidationError("title is required", nil, "test")
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodPost, "/api/tasks", `{"title":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeError(t, rec)
	require.Equal(t, "title is required", p["error"])
}

func TestGetTaskAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		GetTaskF: func(ctx context.Context, id int) (*core.Task, error) {
			if id == testTask.ID {
				return testTask.CloneTask(), nil
			}
			return nil, core.NewTaskNotFoundError(id, "test")
		},
	}
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodGet, "/api/tasks/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := TaskEnvelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "simon", resp.Task.Title)

	rec = doRequest(r, http.MethodGet, "/api/tasks/8", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	p := decodeError(t, rec)
	require.Equal(t, "task 8 not found", p["error"])
	require.Equal(t, 8, svc.LastID)
}

func TestTaskIDParamAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{}
	r := newTestRouter(svc)

	for _, path := range []string{"/api/tasks/abc", "/api/tasks/0", "/api/tasks/-3"} {
		rec := doRequest(r, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		decodeError(t, rec)
	}
}

func TestUpdateTaskAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		UpdateTaskF: func(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error) {
			task := testTask.CloneTask()
			task.Apply(patch)
			return task, nil
		},
	}
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodPut, "/api/tasks/7", `{"completed":true,"priority":"low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 7, svc.LastID)
	require.Nil(t, svc.LastPatch.Title)
	require.Nil(t, svc.LastPatch.Description)
	require.NotNil(t, svc.LastPatch.Completed)
	require.True(t, *svc.LastPatch.Completed)
	require.Equal(t, core.PriorityLow, *svc.LastPatch.Priority)

	resp := TaskEnvelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Task.Completed)
	require.Equal(t, "low", resp.Task.Priority)

	rec = doRequest(r, http.MethodPut, "/api/tasks/7", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.LastPatch.IsEmpty())

	rec = doRequest(r, http.MethodPut, "/api/tasks/7", `{"priority":"whenever"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTaskAPI(t *testing.T) {
	t.Parallel()
	deleted := false
	svc := &mockTodoService{
		DeleteTaskF: func(ctx context.Context, id int) error {
			if deleted {
				return core.NewTaskNotFoundError(id, "test")
			}
			deleted = true
			return nil
		},
	}
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodDelete, "/api/tasks/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(r, http.MethodDelete, "/api/tasks/7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUndoAPI(t *testing.T) {
	t.Parallel()
	calls := 0
	svc := &mockTodoService{
		UndoF: func(ctx context.Context) (*service.UndoResult, error) {
			calls++
			if calls > 1 {
				return nil, core.NewEmptyError("No operations to undo", "test")
			}
			return &service.UndoResult{
				Operation: oplog.KindCreate,
				Task:      testTask.CloneTask(),
				Applied:   true,
				Message:   "Undid creation of task 'simon'",
			}, nil
		},
	}
	r := newTestRouter(svc)

	rec := doRequest(r, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := UndoResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "create", resp.Operation)
	require.Equal(t, "Undid creation of task 'simon'", resp.Message)
	require.True(t, resp.Applied)

	rec = doRequest(r, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeError(t, rec)
	require.Equal(t, "No operations to undo", p["error"])
}

func TestProcessNextAPI(t *testing.T) {
	t.Parallel()
	done := testTask.CloneTask()
	done.Completed = true
	svc := &mockTodoService{
		ProcessNextF: func(ctx context.Context) (*service.ProcessResult, error) {
			return &service.ProcessResult{
				Queued:    testTask.CloneTask(),
				Processed: done,
				Remaining: 2,
				Message:   "Processed task: simon",
			}, nil
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodPost, "/api/queue/process", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := ProcessResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.ProcessedTask.Completed)
	require.Equal(t, 2, resp.RemainingInQueue)
}

func TestStatsAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		StatsF: func(ctx context.Context) (*service.Stats, error) {
			st := &service.Stats{UndoAvailable: 4, QueueSize: 1, StoreSize: 3}
			st.Total, st.Completed, st.Pending = 3, 1, 2
			st.PriorityDistribution.High = 1
			st.PriorityDistribution.Medium = 1
			st.PriorityDistribution.Low = 1
			return st, nil
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := StatsResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StatsBody{
		TotalTasks:              3,
		CompletedTasks:          1,
		PendingTasks:            2,
		PriorityDistribution:    PriorityDistribution{High: 1, Medium: 1, Low: 1},
		UndoOperationsAvailable: 4,
		TasksInProcessingQueue:  1,
		LinkedListSize:          3,
	}, resp.Stats)
}

func TestUnknownErrorIsHidden(t *testing.T) {
	t.Parallel()
	svc := &mockTodoService{
		ListTasksF: func(ctx context.Context) ([]*core.Task, error) {
			return nil, context.DeadlineExceeded
		},
	}
	rec := doRequest(newTestRouter(svc), http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeError(t, rec)
	require.Equal(t, "internal server error", p["error"])
}
