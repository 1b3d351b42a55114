package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/lectern/internal/api/shared"
	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/task"
)

// TaskReader is the read side of the task store used by the API.
type TaskReader interface {
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)
	List(ctx context.Context, filter task.Filter) ([]*task.Task, error)
}

// TaskHandler serves task submission and inspection.
type TaskHandler struct {
	emitter events.EventEmitter
	tasks   TaskReader
	logger  *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Submissions are emitted as task
// request events; reads go straight to tasks.
func NewTaskHandler(emitter events.EventEmitter, tasks TaskReader, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		emitter: emitter,
		tasks:   tasks,
		logger:  logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.SanitizeValidationError(err), err)
		return
	}

	event, err := events.NewTaskRequestEvent(req.Type, req.Parameters)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid task parameters", err)
		return
	}
	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	t, err := h.tasks.Get(r.Context(), event.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("task enqueued over HTTP", slog.String("task_id", t.ID.String()), slog.String("task_type", string(t.Type)))
	shared.RespondWithJSON(w, r, http.StatusCreated, NewTaskResponse(t))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid ID", err)
		return
	}

	t, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(t))
}

// ListTasks handles GET /api/tasks with optional status, type and limit
// query parameters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid query: "+err.Error(), err)
		return
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, NewTaskResponse(t))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

func parseTaskFilter(r *http.Request) (task.Filter, error) {
	q := r.URL.Query()
	filter := task.Filter{
		Status: task.Status(q.Get("status")),
		Type:   task.Type(q.Get("type")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, errors.New("invalid status")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return filter, errors.New("invalid type")
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}
