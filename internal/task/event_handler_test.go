package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/lectern/internal/events"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitter(t *testing.T) {
	t.Parallel()

	t.Run("stores pending task with typed parameters", func(t *testing.T) {
		t.Parallel()
		s := NewMockTaskStore()
		sub, err := NewSubmitter(s, logger.Discard())
		require.NoError(t, err)

		task, err := sub.Submit(context.Background(), uuid.Nil, SummaryParams{LessonID: 3, PromptType: "Bref"})
		require.NoError(t, err)
		assert.Equal(t, TypeSummary, task.Type)
		assert.Equal(t, StatusPending, task.Status)
		assert.JSONEq(t, `{"lesson_id":3,"prompt_type":"Bref"}`, string(task.Parameters))

		stored, err := s.Get(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, stored.ID)
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		t.Parallel()
		s := NewMockTaskStore()
		sub, err := NewSubmitter(s, logger.Discard())
		require.NoError(t, err)

		_, err = sub.SubmitRaw(context.Background(), uuid.Nil, TypeCorrection, json.RawMessage(`{"lesson_id":1,"segments_per_group":0}`))
		assert.ErrorIs(t, err, ErrInvalidParams)
		assert.Empty(t, s.All())
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		s := NewMockTaskStore()
		s.CreateErr = errors.New("read-only transaction")
		sub, err := NewSubmitter(s, logger.Discard())
		require.NoError(t, err)

		_, err = sub.Submit(context.Background(), uuid.Nil, TranscriptionParams{LessonID: 1})
		assert.ErrorContains(t, err, "read-only transaction")
	})

	t.Run("requires a store", func(t *testing.T) {
		t.Parallel()
		_, err := NewSubmitter(nil, nil)
		assert.ErrorIs(t, err, ErrNilStore)
	})
}

func TestTaskFactoryEventHandler(t *testing.T) {
	t.Parallel()

	newHandler := func(t *testing.T) (*TaskFactoryEventHandler, *MockTaskStore) {
		t.Helper()
		s := NewMockTaskStore()
		sub, err := NewSubmitter(s, logger.Discard())
		require.NoError(t, err)
		return NewTaskFactoryEventHandler(sub, logger.Discard()), s
	}

	t.Run("creates task with event id", func(t *testing.T) {
		t.Parallel()
		h, s := newHandler(t)
		event, err := events.NewTaskRequestEvent(string(TypeEdition), map[string]any{"lesson_id": 5, "segments_per_group": 50})
		require.NoError(t, err)

		require.NoError(t, h.HandleEvent(context.Background(), event))

		stored, err := s.Get(context.Background(), event.ID)
		require.NoError(t, err)
		assert.Equal(t, TypeEdition, stored.Type)
		assert.Equal(t, StatusPending, stored.Status)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()
		h, s := newHandler(t)
		event, err := events.NewTaskRequestEvent("frobnicate", map[string]any{"lesson_id": 5})
		require.NoError(t, err)

		err = h.HandleEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrUnknownTaskType)
		assert.Empty(t, s.All())
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		t.Parallel()
		h, s := newHandler(t)
		event, err := events.NewTaskRequestEvent(string(TypeSummary), map[string]any{"lesson": 5})
		require.NoError(t, err)

		err = h.HandleEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidParams)
		assert.Empty(t, s.All())
	})

	t.Run("wired through the emitter", func(t *testing.T) {
		t.Parallel()
		h, s := newHandler(t)
		emitter := events.NewInMemoryEventEmitter(logger.Discard())
		emitter.RegisterHandler(h)

		event, err := events.NewTaskRequestEvent(string(TypeTranscription), map[string]any{"lesson_id": 1})
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, s.All(), 1)
	})
}
