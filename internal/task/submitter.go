package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Submitter validates and persists new tasks.
type Submitter struct {
	store  TaskStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSubmitter creates a Submitter backed by store.
func NewSubmitter(store TaskStore, logger *slog.Logger) (*Submitter, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{store: store, logger: logger.With("component", "task_submitter"), now: time.Now}, nil
}

// Submit stores a pending task for params. A nil id is replaced by a new
// time-ordered id.
func (s *Submitter) Submit(ctx context.Context, id uuid.UUID, params Params) (*Task, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s parameters: %w", params.TaskType(), err)
	}
	return s.SubmitRaw(ctx, id, params.TaskType(), raw)
}

// SubmitRaw decodes and validates raw parameters for taskType before
// storing the task, so the worker never sees parameters it cannot decode.
func (s *Submitter) SubmitRaw(ctx context.Context, id uuid.UUID, taskType Type, raw json.RawMessage) (*Task, error) {
	params, err := DecodeParams(taskType, raw)
	if err != nil {
		return nil, err
	}

	t, err := New(id, taskType, raw, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("store %s task: %w", taskType, err)
	}

	s.logger.Info("task submitted", "task_id", t.ID, "task_type", t.Type, "lesson_id", params.Lesson())
	return t, nil
}
