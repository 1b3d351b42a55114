package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lectern/internal/events"
)

// TaskFactoryEventHandler turns task request events into pending tasks.
// The event id becomes the task id.
type TaskFactoryEventHandler struct {
	submitter *Submitter
	logger    *slog.Logger
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates a handler submitting through submitter.
func NewTaskFactoryEventHandler(submitter *Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		submitter: submitter,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent implements events.EventHandler. Unknown task types and
// invalid payloads are rejected without storing anything.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	taskType := Type(event.Type)
	if !taskType.Valid() {
		h.logger.Warn("rejecting event with unknown task type", "event_id", event.ID, "event_type", event.Type)
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, event.Type)
	}

	t, err := h.submitter.SubmitRaw(ctx, event.ID, taskType, event.Payload)
	if err != nil {
		h.logger.Error("failed to submit task", "event_id", event.ID, "event_type", event.Type, "error", err)
		return err
	}

	h.logger.Debug("task created from event", "task_id", t.ID, "event_id", event.ID)
	return nil
}
