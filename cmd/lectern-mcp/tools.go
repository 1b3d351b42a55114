package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phrazzld/lectern/internal/api"
	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/platform/postgres"
	"github.com/phrazzld/lectern/internal/redact"
	"github.com/phrazzld/lectern/internal/search"
	"github.com/phrazzld/lectern/internal/service"
	"github.com/phrazzld/lectern/internal/task"
)

// taskReader is the read side of the task store used by the tools.
type taskReader interface {
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)
	List(ctx context.Context, filter task.Filter) ([]*task.Task, error)
}

type lessonTools struct {
	lessons api.LessonReader
	tasks   taskReader
	emitter events.EventEmitter
	logger  *slog.Logger
}

func newTools(db *sql.DB, dialect postgres.Dialect, log *slog.Logger) (*lessonTools, error) {
	lessonStore := postgres.NewLessonStore(db, dialect, log)
	taskStore := postgres.NewTaskStore(db, dialect, log)

	lessons, err := service.NewLessonService(lessonStore, db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create lesson service: %w", err)
	}
	submitter, err := task.NewSubmitter(taskStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create task submitter: %w", err)
	}
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(submitter, log))

	return &lessonTools{
		lessons: lessons,
		tasks:   taskStore,
		emitter: emitter,
		logger:  log.With(slog.String("component", "mcp_tools")),
	}, nil
}

func (lt *lessonTools) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("search_lesson",
		mcp.WithDescription("Fuzzy search a lesson transcript. Searches the corrected transcript when one exists, otherwise the raw transcript."),
		mcp.WithNumber("lesson_id", mcp.Required(), mcp.Description("Lesson id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
		mcp.WithNumber("threshold", mcp.Description("Minimum similarity score from 0 to 100 (default 72)")),
		mcp.WithNumber("max_matches", mcp.Description("Maximum number of matches returned (default 50)")),
	), lt.searchLesson)

	s.AddTool(mcp.NewTool("enqueue_task",
		mcp.WithDescription("Queue a processing task for a lesson. The worker picks it up in creation order."),
		mcp.WithString("task_type", mcp.Required(),
			mcp.Enum(string(task.TypeTranscription), string(task.TypeCorrection), string(task.TypeEdition), string(task.TypeSummary)),
			mcp.Description("Kind of task")),
		mcp.WithObject("parameters", mcp.Required(), mcp.Description("Task parameters; always includes lesson_id")),
	), lt.enqueueTask)

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Read a task's status, timing, result and error."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id (UUID)")),
	), lt.getTask)

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List recent tasks, newest first."),
		mcp.WithString("status", mcp.Description("Only tasks with this status")),
		mcp.WithString("task_type", mcp.Description("Only tasks of this type")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 100)")),
	), lt.listTasks)
}

func (lt *lessonTools) searchLesson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("lesson_id")
	if err != nil || id < 1 {
		return mcp.NewToolResultError("lesson_id must be a positive integer"), nil
	}
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	opts := search.Options{MaxMatches: req.GetInt("max_matches", 0)}
	if _, ok := req.GetArguments()["threshold"]; ok {
		threshold, err := req.RequireFloat("threshold")
		if err != nil {
			return mcp.NewToolResultError("threshold must be a number"), nil
		}
		opts.Threshold = &threshold
	}

	resp, err := api.SearchLesson(ctx, lt.lessons, int64(id), query, opts)
	if err != nil {
		return lt.toolError("search_lesson", err), nil
	}
	return jsonResult(resp)
}

func (lt *lessonTools) enqueueTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskType, err := req.RequireString("task_type")
	if err != nil {
		return mcp.NewToolResultError("task_type is required"), nil
	}
	params, ok := req.GetArguments()["parameters"]
	if !ok || params == nil {
		return mcp.NewToolResultError("parameters is required"), nil
	}

	event, err := events.NewTaskRequestEvent(taskType, params)
	if err != nil {
		return lt.toolError("enqueue_task", err), nil
	}
	if err := lt.emitter.EmitEvent(ctx, event); err != nil {
		return lt.toolError("enqueue_task", err), nil
	}

	t, err := lt.tasks.Get(ctx, event.ID)
	if err != nil {
		return lt.toolError("enqueue_task", err), nil
	}
	return jsonResult(api.NewTaskResponse(t))
}

func (lt *lessonTools) getTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("task_id is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("task_id must be a UUID"), nil
	}

	t, err := lt.tasks.Get(ctx, id)
	if err != nil {
		return lt.toolError("get_task", err), nil
	}
	return jsonResult(api.NewTaskResponse(t))
}

func (lt *lessonTools) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := task.Filter{
		Status: task.Status(req.GetString("status", "")),
		Type:   task.Type(req.GetString("task_type", "")),
		Limit:  req.GetInt("limit", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return mcp.NewToolResultError("invalid status"), nil
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return mcp.NewToolResultError("invalid task_type"), nil
	}
	if filter.Limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	tasks, err := lt.tasks.List(ctx, filter)
	if err != nil {
		return lt.toolError("list_tasks", err), nil
	}
	resp := api.TaskListResponse{Tasks: make([]api.TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, api.NewTaskResponse(t))
	}
	return jsonResult(resp)
}

// toolError reports err to the client as a tool failure with the same
// sanitized message the HTTP API would use.
func (lt *lessonTools) toolError(tool string, err error) *mcp.CallToolResult {
	lt.logger.Warn("tool call failed", slog.String("tool", tool), slog.String("error", redact.Error(err)))
	return mcp.NewToolResultError(api.GetSafeErrorMessage(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
