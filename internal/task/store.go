package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Filter narrows TaskStore.List. Zero values match everything.
type Filter struct {
	Status Status
	Type   Type
	// Limit caps the number of tasks returned; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is the page size used when Filter.Limit is zero.
const DefaultListLimit = 100

// TaskStore persists tasks.
type TaskStore interface {
	// Create inserts a new task.
	Create(ctx context.Context, t *Task) error

	// Get returns ErrTaskNotFound when no task has id.
	Get(ctx context.Context, id uuid.UUID) (*Task, error)

	// NextPending returns the oldest pending task by creation time, ties
	// broken by id, or ErrNoPendingTask.
	NextPending(ctx context.Context) (*Task, error)

	// Transition persists t's status, stamps, result and error, but only
	// if the stored status is still from. Otherwise it returns
	// ErrTransitionConflict.
	Transition(ctx context.Context, t *Task, from Status) error

	// List returns tasks matching filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Task, error)

	// ListRunning returns running tasks that started before startedBefore.
	ListRunning(ctx context.Context, startedBefore time.Time) ([]*Task, error)

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) TaskStore
}
