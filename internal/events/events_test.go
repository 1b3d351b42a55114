package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler stores the events it receives.
type recordingHandler struct {
	mu     sync.Mutex
	events []*TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type summaryPayload struct {
		LessonID   int64  `json:"lesson_id"`
		PromptType string `json:"prompt_type"`
	}

	t.Run("marshals struct payloads", func(t *testing.T) {
		t.Parallel()
		event, err := NewTaskRequestEvent("summary", summaryPayload{LessonID: 42, PromptType: "Bref"})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, uuid.Version(7), event.ID.Version())
		assert.Equal(t, "summary", event.Type)
		assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)
		assert.Equal(t, time.UTC, event.CreatedAt.Location())

		var decoded summaryPayload
		require.NoError(t, event.UnmarshalPayload(&decoded))
		assert.Equal(t, int64(42), decoded.LessonID)
		assert.Equal(t, "Bref", decoded.PromptType)
	})

	t.Run("keeps raw payloads verbatim", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{"lesson_id":7}`)
		event, err := NewTaskRequestEvent("transcription", raw)
		require.NoError(t, err)
		assert.JSONEq(t, `{"lesson_id":7}`, string(event.Payload))
	})

	t.Run("ids are time ordered", func(t *testing.T) {
		t.Parallel()
		first, err := NewTaskRequestEvent("correction", map[string]int{"lesson_id": 1})
		require.NoError(t, err)
		second, err := NewTaskRequestEvent("correction", map[string]int{"lesson_id": 1})
		require.NoError(t, err)
		assert.Less(t, first.ID.String(), second.ID.String())
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		t.Parallel()
		_, err := NewTaskRequestEvent("summary", make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marshal summary payload")
	})
}
