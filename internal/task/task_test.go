package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	statuses := []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusRunning}:   true,
		{StatusRunning, StatusCompleted}: true,
		{StatusRunning, StatusFailed}:    true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.FixedZone("CET", 3600))

	t.Run("generates time ordered id", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeSummary, json.RawMessage(`{"lesson_id":1}`), now)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), task.ID.Version())
		assert.Equal(t, StatusPending, task.Status)
		assert.Equal(t, time.UTC, task.CreatedAt.Location())
		assert.Equal(t, 123456000, task.CreatedAt.Nanosecond())
		assert.Nil(t, task.StartDate)
		assert.Nil(t, task.EndDate)
		assert.Nil(t, task.Duration)
	})

	t.Run("keeps supplied id", func(t *testing.T) {
		t.Parallel()
		id := uuid.Must(uuid.NewV7())
		task, err := New(id, TypeCorrection, nil, now)
		require.NoError(t, err)
		assert.Equal(t, id, task.ID)
		assert.JSONEq(t, `{}`, string(task.Parameters))
	})
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("complete stamps once and derives duration", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeSummary, nil, base)
		require.NoError(t, err)

		start := base.Add(time.Second + 700*time.Nanosecond)
		require.NoError(t, task.Start(start))
		assert.Equal(t, StatusRunning, task.Status)
		require.NotNil(t, task.StartDate)
		assert.Equal(t, start.Truncate(time.Microsecond), *task.StartDate)

		end := start.Add(90 * time.Second)
		require.NoError(t, task.Complete(end, json.RawMessage(`{"message":"ok"}`)))
		assert.Equal(t, StatusCompleted, task.Status)
		require.NotNil(t, task.EndDate)
		require.NotNil(t, task.Duration)
		assert.Equal(t, task.EndDate.Sub(*task.StartDate), *task.Duration)
		assert.JSONEq(t, `{"message":"ok"}`, string(task.Result))
	})

	t.Run("fail records message", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeEdition, nil, base)
		require.NoError(t, err)
		require.NoError(t, task.Start(base))
		require.NoError(t, task.Fail(base.Add(time.Minute), "boom"))
		assert.Equal(t, StatusFailed, task.Status)
		assert.Equal(t, "boom", task.Error)
		assert.Equal(t, time.Minute, *task.Duration)
	})

	t.Run("clock going backwards never yields negative duration", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeEdition, nil, base)
		require.NoError(t, err)
		require.NoError(t, task.Start(base))
		require.NoError(t, task.Fail(base.Add(-time.Second), "skew"))
		assert.Equal(t, time.Duration(0), *task.Duration)
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeSummary, nil, base)
		require.NoError(t, err)
		require.NoError(t, task.Start(base))
		require.NoError(t, task.Complete(base.Add(time.Second), nil))
		endDate := *task.EndDate

		assert.ErrorIs(t, task.Fail(base.Add(time.Hour), "late"), ErrInvalidTransition)
		assert.ErrorIs(t, task.Start(base.Add(time.Hour)), ErrInvalidTransition)
		assert.Equal(t, StatusCompleted, task.Status)
		assert.Equal(t, endDate, *task.EndDate)
		assert.Empty(t, task.Error)
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		t.Parallel()
		task, err := New(uuid.Nil, TypeSummary, nil, base)
		require.NoError(t, err)
		assert.ErrorIs(t, task.Complete(base, nil), ErrInvalidTransition)
		assert.Nil(t, task.EndDate)
	})
}
