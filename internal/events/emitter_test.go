package events

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	newEvent := func(t *testing.T) *TaskRequestEvent {
		t.Helper()
		event, err := NewTaskRequestEvent("correction", map[string]int{"lesson_id": 3})
		require.NoError(t, err)
		return event
	}

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		err := emitter.EmitEvent(context.Background(), newEvent(t))
		assert.ErrorIs(t, err, ErrNoHandlers)
	})

	t.Run("delivers to every handler", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		h1, h2 := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event := newEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, h1.count())
		assert.Equal(t, 1, h2.count())
		assert.Same(t, event, h1.events[0])
	})

	t.Run("returns first error after running all handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger.Discard())
		errFirst := errors.New("first")
		h1 := &recordingHandler{err: errFirst}
		h2 := &recordingHandler{err: errors.New("second")}
		h3 := &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)
		emitter.RegisterHandler(h3)

		err := emitter.EmitEvent(context.Background(), newEvent(t))
		assert.ErrorIs(t, err, errFirst)
		assert.Equal(t, 1, h3.count())
	})
}
