package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/lectern/internal/search"
	"github.com/phrazzld/lectern/internal/task"
)

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Type       string          `json:"type" validate:"required,oneof=transcription correction edition summary"`
	Parameters json.RawMessage `json:"parameters" validate:"required"`
}

// TaskResponse is the JSON form of a task. Duration is in seconds.
type TaskResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"task_type"`
	Status     string          `json:"status"`
	StartDate  *time.Time      `json:"start_date"`
	EndDate    *time.Time      `json:"end_date"`
	Duration   *float64        `json:"duration"`
	Parameters json.RawMessage `json:"parameters"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewTaskResponse converts a task to its JSON form.
func NewTaskResponse(t *task.Task) TaskResponse {
	resp := TaskResponse{
		ID:         t.ID.String(),
		Type:       string(t.Type),
		Status:     string(t.Status),
		StartDate:  t.StartDate,
		EndDate:    t.EndDate,
		Parameters: t.Parameters,
		Result:     t.Result,
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
	}
	if t.Duration != nil {
		seconds := t.Duration.Seconds()
		resp.Duration = &seconds
	}
	return resp
}

// TaskListResponse is the body of GET /api/tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// SearchResponse is the body of GET /api/lessons/{id}/search. Source is
// "corrected" or "raw" depending on which transcript was searched.
type SearchResponse struct {
	LessonID int64          `json:"lesson_id"`
	Query    string         `json:"query"`
	Source   string         `json:"source"`
	Matches  []search.Match `json:"matches"`
}
