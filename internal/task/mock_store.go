package task

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/lectern/internal/store"
)

// MockTaskStore is an in-memory TaskStore for tests. It enforces the same
// ordering and guarded transitions as the SQL store. Setting an *Err field
// makes the corresponding method fail.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task

	CreateErr      error
	NextPendingErr error
	TransitionErr  error

	// OnTransition, when set, runs before a transition is applied. Tests
	// use it to simulate a competing worker.
	OnTransition func(t *Task, from Status)

	// TransitionErrFn, when set, is consulted after TransitionErr; a
	// non-nil result fails that transition only.
	TransitionErrFn func(t *Task, from Status) error
}

var _ TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*Task)}
}

// Create implements TaskStore.
func (s *MockTaskStore) Create(_ context.Context, t *Task) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, t.ID)
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

// Get implements TaskStore.
func (s *MockTaskStore) Get(_ context.Context, id uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return clone(t), nil
}

// NextPending implements TaskStore.
func (s *MockTaskStore) NextPending(_ context.Context) (*Task, error) {
	if s.NextPendingErr != nil {
		return nil, s.NextPendingErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *Task
	for _, t := range s.tasks {
		if t.Status != StatusPending {
			continue
		}
		if next == nil || less(t, next) {
			next = t
		}
	}
	if next == nil {
		return nil, ErrNoPendingTask
	}
	return clone(next), nil
}

// Transition implements TaskStore.
func (s *MockTaskStore) Transition(_ context.Context, t *Task, from Status) error {
	if s.OnTransition != nil {
		s.OnTransition(t, from)
	}
	if s.TransitionErr != nil {
		return s.TransitionErr
	}
	if s.TransitionErrFn != nil {
		if err := s.TransitionErrFn(t, from); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[t.ID]
	if !ok {
		return ErrTaskNotFound
	}
	if stored.Status != from {
		return fmt.Errorf("%w: task %s is %s, expected %s", ErrTransitionConflict, t.ID, stored.Status, from)
	}
	s.tasks[t.ID] = clone(t)
	return nil
}

// List implements TaskStore.
func (s *MockTaskStore) List(_ context.Context, filter Filter) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Task
	for _, t := range s.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		out = append(out, clone(t))
	}
	slices.SortFunc(out, func(a, b *Task) int {
		if less(a, b) {
			return 1
		}
		if less(b, a) {
			return -1
		}
		return 0
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListRunning implements TaskStore.
func (s *MockTaskStore) ListRunning(_ context.Context, startedBefore time.Time) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Task
	for _, t := range s.tasks {
		if t.Status == StatusRunning && t.StartDate != nil && t.StartDate.Before(startedBefore) {
			out = append(out, clone(t))
		}
	}
	return out, nil
}

// WithTx returns the same store; the mock has no transactions.
func (s *MockTaskStore) WithTx(*sql.Tx) TaskStore {
	return s
}

// Put stores t as is, bypassing lifecycle checks.
func (s *MockTaskStore) Put(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = clone(t)
}

// All returns every stored task, oldest first.
func (s *MockTaskStore) All() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, clone(t))
	}
	slices.SortFunc(out, func(a, b *Task) int {
		if less(a, b) {
			return -1
		}
		if less(b, a) {
			return 1
		}
		return 0
	})
	return out
}

func less(a, b *Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return strings.Compare(a.ID.String(), b.ID.String()) < 0
}

func clone(t *Task) *Task {
	c := *t
	c.Parameters = slices.Clone(t.Parameters)
	c.Result = slices.Clone(t.Result)
	if t.StartDate != nil {
		v := *t.StartDate
		c.StartDate = &v
	}
	if t.EndDate != nil {
		v := *t.EndDate
		c.EndDate = &v
	}
	if t.Duration != nil {
		v := *t.Duration
		c.Duration = &v
	}
	return &c
}
