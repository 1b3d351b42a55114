package task

import (
	"errors"
	"fmt"

	"github.com/phrazzld/lectern/internal/store"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// by the lifecycle.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTransitionConflict is returned when a guarded transition finds the
	// task in a different status than expected, usually because another
	// worker claimed it first.
	ErrTransitionConflict = errors.New("task status changed concurrently")

	// ErrNoPendingTask is returned by TaskStore.NextPending when the queue is empty.
	ErrNoPendingTask = errors.New("no pending task")

	// ErrUnknownTaskType is returned for task types the system does not know.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrInvalidParams is returned when task parameters do not decode or validate.
	ErrInvalidParams = errors.New("invalid task parameters")

	// ErrNoHandler is returned when a known task type has no registered handler.
	ErrNoHandler = errors.New("no handler registered for task type")

	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = store.ErrTaskNotFound

	// ErrMissingTranscript is returned when a stage needs a transcript the
	// lesson does not have yet.
	ErrMissingTranscript = fmt.Errorf("%w: transcript", store.ErrNotFound)

	// ErrAudioNotFound is returned when the lesson's audio file is missing.
	ErrAudioNotFound = fmt.Errorf("%w: audio file", store.ErrNotFound)

	// ErrEmptyTranscript is returned when a transcript has no text to summarize.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// Handler construction errors.
	ErrNilLessonService = errors.New("lesson service cannot be nil")
	ErrNilEngine        = errors.New("engine cannot be nil")
	ErrNilConfig        = errors.New("config provider cannot be nil")
	ErrNilStore         = errors.New("task store cannot be nil")
)
