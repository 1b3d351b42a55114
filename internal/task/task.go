package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the lifecycle allows from → to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Type selects the handler that executes a task.
type Type string

const (
	TypeTranscription Type = "transcription"
	TypeCorrection    Type = "correction"
	TypeEdition       Type = "edition"
	TypeSummary       Type = "summary"
)

// Types lists every known task type.
var Types = []Type{TypeTranscription, TypeCorrection, TypeEdition, TypeSummary}

// Valid reports whether t is a known task type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Task is a persisted background job.
//
// StartDate is set when the task starts running and EndDate when it
// finishes; both are set at most once and Duration is always exactly
// EndDate - StartDate. Stamps are truncated to microseconds so they
// survive a database round trip unchanged.
type Task struct {
	ID         uuid.UUID
	Type       Type
	Status     Status
	StartDate  *time.Time
	EndDate    *time.Time
	Duration   *time.Duration
	Parameters json.RawMessage
	Result     json.RawMessage
	Error      string
	CreatedAt  time.Time
}

// New creates a pending task. A nil id is replaced by a new time-ordered id.
func New(id uuid.UUID, taskType Type, params json.RawMessage, now time.Time) (*Task, error) {
	if id == uuid.Nil {
		var err error
		id, err = uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate task id: %w", err)
		}
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	return &Task{
		ID:         id,
		Type:       taskType,
		Status:     StatusPending,
		Parameters: params,
		CreatedAt:  stamp(now),
	}, nil
}

func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (t *Task) transition(to Status) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	return nil
}

// Start moves a pending task to running and stamps StartDate.
func (t *Task) Start(now time.Time) error {
	if err := t.transition(StatusRunning); err != nil {
		return err
	}
	if t.StartDate == nil {
		s := stamp(now)
		t.StartDate = &s
	}
	return nil
}

// Complete moves a running task to completed with result.
func (t *Task) Complete(now time.Time, result json.RawMessage) error {
	if err := t.transition(StatusCompleted); err != nil {
		return err
	}
	t.Result = result
	t.finish(now)
	return nil
}

// Fail moves a running task to failed with message.
func (t *Task) Fail(now time.Time, message string) error {
	if err := t.transition(StatusFailed); err != nil {
		return err
	}
	t.Error = message
	t.finish(now)
	return nil
}

func (t *Task) finish(now time.Time) {
	if t.EndDate != nil {
		return
	}
	end := stamp(now)
	if t.StartDate != nil && end.Before(*t.StartDate) {
		end = *t.StartDate
	}
	t.EndDate = &end
	if t.StartDate != nil {
		d := end.Sub(*t.StartDate)
		t.Duration = &d
	}
}
