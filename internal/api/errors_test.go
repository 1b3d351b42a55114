package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("load: %w", store.ErrLessonNotFound), http.StatusNotFound, "Lesson not found"},
		{task.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
		{task.ErrMissingTranscript, http.StatusNotFound, "Lesson has no transcript"},
		{fmt.Errorf("%w: task x", store.ErrDuplicate), http.StatusConflict, "Task already exists"},
		{fmt.Errorf("%w: frobnicate", task.ErrUnknownTaskType), http.StatusBadRequest, "Unknown task type"},
		{fmt.Errorf("%w: summary: lesson_id", task.ErrInvalidParams), http.StatusBadRequest, "Invalid task parameters"},
		{events.ErrNoHandlers, http.StatusServiceUnavailable, "Task submission is not available"},
		{errors.New("password=hunter2 connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
