package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrLessonNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, task.ErrMissingTranscript):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, task.ErrUnknownTaskType),
		errors.Is(err, task.ErrInvalidParams),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, events.ErrNoHandlers):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, store.ErrLessonNotFound):
		return "Lesson not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, task.ErrMissingTranscript):
		return "Lesson has no transcript"
	case errors.Is(err, store.ErrDuplicate):
		return "Task already exists"
	case errors.Is(err, task.ErrUnknownTaskType):
		return "Unknown task type"
	case errors.Is(err, task.ErrInvalidParams):
		return "Invalid task parameters"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, events.ErrNoHandlers):
		return "Task submission is not available"
	default:
		return "An unexpected error occurred"
	}
}
