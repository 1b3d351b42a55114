package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/redact"
)

// InterruptedMessage is the error recorded on tasks found running at
// startup after their worker went away.
const InterruptedMessage = "interrupted: worker stopped before completion"

// WorkerConfig controls the polling loop.
type WorkerConfig struct {
	// PollInterval is the sleep between polls when no task is pending.
	PollInterval time.Duration

	// StaleTaskAge is the minimum age of a running task for Recover to
	// fail it. Zero disables recovery.
	StaleTaskAge time.Duration

	// OutcomeAttempts bounds the tries at recording a finished task's
	// final status; OutcomeDelay is the first wait, doubled each retry.
	OutcomeAttempts int
	OutcomeDelay    time.Duration
}

// DefaultWorkerConfig polls every 5 seconds with recovery disabled and
// records outcomes with up to 5 attempts starting at 500ms.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:    5 * time.Second,
		OutcomeAttempts: 5,
		OutcomeDelay:    500 * time.Millisecond,
	}
}

// Worker runs one task at a time from a TaskStore.
type Worker struct {
	store    TaskStore
	handlers map[Type]Handler
	cfg      WorkerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorker creates a Worker dispatching to handlers by type. Registering
// two handlers for the same type is an error.
func NewWorker(store TaskStore, handlers []Handler, cfg WorkerConfig, log *slog.Logger) (*Worker, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	defaults := DefaultWorkerConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.OutcomeAttempts <= 0 {
		cfg.OutcomeAttempts = defaults.OutcomeAttempts
	}
	if cfg.OutcomeDelay <= 0 {
		cfg.OutcomeDelay = defaults.OutcomeDelay
	}
	if log == nil {
		log = slog.Default()
	}
	byType := make(map[Type]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := byType[h.Type()]; dup {
			return nil, fmt.Errorf("duplicate handler for task type %s", h.Type())
		}
		byType[h.Type()] = h
	}
	return &Worker{
		store:    store,
		handlers: byType,
		cfg:      cfg,
		logger:   log.With("component", "worker"),
		now:      time.Now,
	}, nil
}

// Run polls for tasks until ctx is cancelled. Cancellation is only
// observed between tasks: a task that has been claimed always runs to
// completion, with its own context detached from ctx.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "poll_interval", w.cfg.PollInterval)

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		claimed, err := w.RunOnce(context.WithoutCancel(ctx))
		if err != nil {
			w.logger.Error("worker iteration failed", "error", redact.Error(err))
		}
		if claimed && err == nil {
			continue
		}

		timer := time.NewTimer(w.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("worker stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce claims and executes the oldest pending task. It reports whether
// a task was claimed or lost to another worker, in which case the caller
// should poll again without sleeping.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	t, err := w.store.NextPending(ctx)
	if errors.Is(err, ErrNoPendingTask) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch pending task: %w", err)
	}

	if err := t.Start(w.now()); err != nil {
		return false, err
	}
	if err := w.store.Transition(ctx, t, StatusPending); err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			w.logger.Debug("task claimed by another worker", "task_id", t.ID)
			return true, nil
		}
		return false, fmt.Errorf("claim task %s: %w", t.ID, err)
	}

	log := w.logger.With("task_id", t.ID, "task_type", t.Type)
	log.Info("task started")

	result, execErr := w.execute(logger.WithLogger(ctx, log), t, log)
	if execErr != nil {
		msg := redact.Error(execErr)
		log.Error("task failed", "error", msg)
		if err := t.Fail(w.now(), msg); err != nil {
			return true, err
		}
	} else {
		if err := t.Complete(w.now(), result); err != nil {
			return true, err
		}
		log.Info("task completed", "duration", *t.Duration)
	}

	if err := w.recordOutcome(ctx, t, log); err != nil {
		return true, fmt.Errorf("record outcome of task %s: %w", t.ID, err)
	}
	return true, nil
}

// recordOutcome writes the terminal status of t. The handler's lesson
// writes are already committed, so transient store errors are retried
// with exponential backoff; a conflict or a missing task is final.
func (w *Worker) recordOutcome(ctx context.Context, t *Task, log *slog.Logger) error {
	backoff := retry.WithMaxRetries(uint64(w.cfg.OutcomeAttempts-1), retry.NewExponential(w.cfg.OutcomeDelay))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := w.store.Transition(ctx, t, StatusRunning)
		if err == nil || errors.Is(err, ErrTransitionConflict) || errors.Is(err, ErrTaskNotFound) {
			return err
		}
		log.Warn("failed to record task outcome",
			"attempt", attempt,
			"max_attempts", w.cfg.OutcomeAttempts,
			"status", t.Status,
			"error", redact.Error(err))
		return retry.RetryableError(err)
	})
}

// execute decodes parameters, runs the handler and encodes its result.
// Handler panics are returned as errors.
func (w *Worker) execute(ctx context.Context, t *Task, log *slog.Logger) (result json.RawMessage, err error) {
	params, err := DecodeParams(t.Type, t.Parameters)
	if err != nil {
		return nil, err
	}
	h, ok := w.handlers[t.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, t.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("task handler panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()

	log = log.With("lesson_id", params.Lesson())
	res, err := h.Handle(logger.WithLogger(ctx, log), params)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", t.Type, err)
	}
	return encoded, nil
}

// Recover fails tasks left running by a previous worker for longer than
// StaleTaskAge. It returns the number of tasks failed.
func (w *Worker) Recover(ctx context.Context) (int, error) {
	if w.cfg.StaleTaskAge <= 0 {
		return 0, nil
	}
	stale, err := w.store.ListRunning(ctx, w.now().Add(-w.cfg.StaleTaskAge))
	if err != nil {
		return 0, fmt.Errorf("list running tasks: %w", err)
	}

	failed := 0
	for _, t := range stale {
		if err := t.Fail(w.now(), InterruptedMessage); err != nil {
			return failed, err
		}
		if err := w.store.Transition(ctx, t, StatusRunning); err != nil {
			if errors.Is(err, ErrTransitionConflict) {
				continue
			}
			return failed, fmt.Errorf("fail stale task %s: %w", t.ID, err)
		}
		w.logger.Warn("failed stale running task", "task_id", t.ID, "task_type", t.Type, "started", *t.StartDate)
		failed++
	}
	return failed, nil
}
