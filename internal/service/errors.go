package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/lectern/internal/store"
)

// ErrLessonNotFound is returned when the requested lesson does not exist.
// It is the store sentinel so callers can match either.
var ErrLessonNotFound = store.ErrLessonNotFound

// LessonServiceError wraps errors from the lesson service with context.
type LessonServiceError struct {
	// Operation is the operation that failed (e.g. "save_correction").
	Operation string
	// LessonID is the lesson the operation targeted.
	LessonID int64
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *LessonServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lesson service %s failed for lesson %d: %s: %v", e.Operation, e.LessonID, e.Message, e.Err)
	}
	return fmt.Sprintf("lesson service %s failed for lesson %d: %s", e.Operation, e.LessonID, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *LessonServiceError) Unwrap() error {
	return e.Err
}

// NewLessonServiceError wraps err with operation context. Not-found errors
// are returned as ErrLessonNotFound without wrapping.
func NewLessonServiceError(operation string, lessonID int64, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrLessonNotFound) {
		return ErrLessonNotFound
	}
	return &LessonServiceError{
		Operation: operation,
		LessonID:  lessonID,
		Message:   message,
		Err:       err,
	}
}
