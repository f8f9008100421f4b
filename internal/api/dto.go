package api

import (
	"time"

	"github.com/mauzec/todo-ds/internal/core"
	"github.com/mauzec/todo-ds/internal/oplog"
	"github.com/mauzec/todo-ds/internal/service"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=high medium low"`
}

// UpdateTaskRequest carries only the fields to change.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=high medium low"`
	Completed   *bool   `json:"completed"`
}

func (r *UpdateTaskRequest) Patch() core.TaskPatch {
	p := core.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
	}
	if r.Priority != nil {
		prio := core.Priority(*r.Priority)
		p.Priority = &prio
	}
	return p
}

type TaskResponse struct {
	TaskID      int       `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

type TasksListResponse struct {
	Success bool            `json:"success"`
	Tasks   []*TaskResponse `json:"tasks"`
	Total   int             `json:"total"`
}

type TaskEnvelope struct {
	Success bool          `json:"success"`
	Task    *TaskResponse `json:"task,omitempty"`
	Message string        `json:"message,omitempty"`
}

type UndoResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Operation string        `json:"operation"`
	Applied   bool          `json:"applied"`
	Task      *TaskResponse `json:"task,omitempty"`
}

type ProcessResponse struct {
	Success bool `json:"success"`
	// ProcessedTask is null if the queued task was deleted meanwhile.
	ProcessedTask    *TaskResponse `json:"processed_task"`
	Message          string        `json:"message"`
	RemainingInQueue int           `json:"remaining_in_queue"`
}

type QueueResponse struct {
	Success bool          `json:"success"`
	Next    *TaskResponse `json:"next"`
	Size    int           `json:"size"`
}

type OperationResponse struct {
	Kind      string        `json:"kind"`
	TaskID    int           `json:"task_id"`
	Before    *TaskResponse `json:"before,omitempty"`
	After     *TaskResponse `json:"after,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type HistoryResponse struct {
	Success    bool                 `json:"success"`
	Operations []*OperationResponse `json:"operations"`
}

type PriorityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type StatsBody struct {
	TotalTasks           int                  `json:"total_tasks"`
	CompletedTasks       int                  `json:"completed_tasks"`
	PendingTasks         int                  `json:"pending_tasks"`
	PriorityDistribution PriorityDistribution `json:"priority_distribution"`

	UndoOperationsAvailable int `json:"undo_operations_available"`
	TasksInProcessingQueue  int `json:"tasks_in_processing_queue"`
	LinkedListSize          int `json:"linked_list_size"`
}

type StatsResponse struct {
	Success bool      `json:"success"`
	Stats   StatsBody `json:"stats"`
}

func NewTaskResponse(task *core.Task) *TaskResponse {
	if task == nil {
		return nil
	}
	return &TaskResponse{
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
	}
}

func NewTasksListResponse(tasks []*core.Task) *TasksListResponse {
	resp := &TasksListResponse{
		Success: true,
		Tasks:   make([]*TaskResponse, 0, len(tasks)),
	}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		resp.Tasks = append(resp.Tasks, NewTaskResponse(t))
	}
	resp.Total = len(resp.Tasks)
	return resp
}

func NewUndoResponse(res *service.UndoResult) *UndoResponse {
	return &UndoResponse{
		Success:   true,
		Message:   res.Message,
		Operation: string(res.Operation),
		Applied:   res.Applied,
		Task:      NewTaskResponse(res.Task),
	}
}

func NewProcessResponse(res *service.ProcessResult) *ProcessResponse {
	return &ProcessResponse{
		Success:          true,
		ProcessedTask:    NewTaskResponse(res.Processed),
		Message:          res.Message,
		RemainingInQueue: res.Remaining,
	}
}

func NewHistoryResponse(ops []oplog.Descriptor) *HistoryResponse {
	resp := &HistoryResponse{
		Success:    true,
		Operations: make([]*OperationResponse, 0, len(ops)),
	}
	for _, d := range ops {
		resp.Operations = append(resp.Operations, &OperationResponse{
			Kind:      string(d.Kind),
			TaskID:    d.TaskID,
			Before:    NewTaskResponse(d.Before),
			After:     NewTaskResponse(d.After),
			Timestamp: d.Timestamp,
		})
	}
	return resp
}

func NewStatsResponse(st *service.Stats) *StatsResponse {
	return &StatsResponse{
		Success: true,
		Stats: StatsBody{
			TotalTasks:     st.Total,
			CompletedTasks: st.Completed,
			PendingTasks:   st.Pending,
			PriorityDistribution: PriorityDistribution{
				High:   st.PriorityDistribution.High,
				Medium: st.PriorityDistribution.Medium,
				Low:    st.PriorityDistribution.Low,
			},
			UndoOperationsAvailable: st.UndoAvailable,
			TasksInProcessingQueue:  st.QueueSize,
			LinkedListSize:          st.StoreSize,
		},
	}
}
