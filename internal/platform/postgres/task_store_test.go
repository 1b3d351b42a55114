package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/platform/postgres"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/task"
	"github.com/phrazzld/lectern/internal/testdb"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTaskStore(t *testing.T) *postgres.TaskStore {
	t.Helper()
	return postgres.NewTaskStore(testdb.Open(t), testdb.Dialect, logger.Discard())
}

func createTask(t *testing.T, tasks task.TaskStore, taskType task.Type, createdAt time.Time) *task.Task {
	t.Helper()
	tk, err := task.New(uuid.Nil, taskType, json.RawMessage(`{"lesson_id":1}`), createdAt)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), tk))
	return tk
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	created := createTask(t, tasks, task.TypeCorrection, epoch)

	got, err := tasks.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, task.TypeCorrection, got.Type)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.JSONEq(t, `{"lesson_id":1}`, string(got.Parameters))
	assert.True(t, epoch.Equal(got.CreatedAt))
	assert.Nil(t, got.StartDate)
	assert.Nil(t, got.EndDate)
	assert.Nil(t, got.Duration)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
}

func TestTaskStoreGetMissing(t *testing.T) {
	tasks := newTaskStore(t)

	_, err := tasks.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestTaskStoreCreateDuplicate(t *testing.T) {
	tasks := newTaskStore(t)

	created := createTask(t, tasks, task.TypeSummary, epoch)
	dup, err := task.New(created.ID, task.TypeSummary, nil, epoch)
	require.NoError(t, err)

	assert.ErrorIs(t, tasks.Create(context.Background(), dup), store.ErrDuplicate)
}

func TestTaskStoreNextPendingOrder(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	_, err := tasks.NextPending(ctx)
	assert.ErrorIs(t, err, task.ErrNoPendingTask)

	later := createTask(t, tasks, task.TypeSummary, epoch.Add(time.Minute))
	first := createTask(t, tasks, task.TypeTranscription, epoch)
	createTask(t, tasks, task.TypeCorrection, epoch.Add(90*time.Second))

	next, err := tasks.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, next.ID)

	require.NoError(t, next.Start(epoch.Add(2*time.Minute)))
	require.NoError(t, tasks.Transition(ctx, next, task.StatusPending))

	next, err = tasks.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, later.ID, next.ID)
}

func TestTaskStoreTransitionLifecycle(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	tk := createTask(t, tasks, task.TypeSummary, epoch)
	require.NoError(t, tk.Start(epoch.Add(time.Second)))
	require.NoError(t, tasks.Transition(ctx, tk, task.StatusPending))

	result := json.RawMessage(`{"message":"Summary generated successfully","lesson_id":1}`)
	require.NoError(t, tk.Complete(epoch.Add(3500*time.Millisecond), result))
	require.NoError(t, tasks.Transition(ctx, tk, task.StatusRunning))

	got, err := tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.EndDate)
	require.NotNil(t, got.Duration)
	assert.True(t, got.StartDate.Equal(epoch.Add(time.Second)))
	assert.True(t, got.EndDate.Equal(epoch.Add(3500*time.Millisecond)))
	assert.Equal(t, 2500*time.Millisecond, *got.Duration)
	assert.JSONEq(t, string(result), string(got.Result))
	assert.Empty(t, got.Error)
}

func TestTaskStoreTransitionFailedKeepsError(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	tk := createTask(t, tasks, task.TypeTranscription, epoch)
	require.NoError(t, tk.Start(epoch))
	require.NoError(t, tasks.Transition(ctx, tk, task.StatusPending))
	require.NoError(t, tk.Fail(epoch.Add(time.Second), "audio file not found"))
	require.NoError(t, tasks.Transition(ctx, tk, task.StatusRunning))

	got, err := tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Equal(t, "audio file not found", got.Error)
	assert.Nil(t, got.Result)
}

func TestTaskStoreTransitionConflict(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	tk := createTask(t, tasks, task.TypeEdition, epoch)

	claimA, err := tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	claimB, err := tasks.Get(ctx, tk.ID)
	require.NoError(t, err)

	require.NoError(t, claimA.Start(epoch.Add(time.Second)))
	require.NoError(t, tasks.Transition(ctx, claimA, task.StatusPending))

	require.NoError(t, claimB.Start(epoch.Add(2*time.Second)))
	err = tasks.Transition(ctx, claimB, task.StatusPending)
	assert.ErrorIs(t, err, task.ErrTransitionConflict)
	assert.Contains(t, err.Error(), "running")

	got, err := tasks.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(epoch.Add(time.Second)))
}

func TestTaskStoreTransitionMissing(t *testing.T) {
	tasks := newTaskStore(t)

	tk, err := task.New(uuid.Nil, task.TypeSummary, nil, epoch)
	require.NoError(t, err)
	require.NoError(t, tk.Start(epoch))

	err = tasks.Transition(context.Background(), tk, task.StatusPending)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestTaskStoreList(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	a := createTask(t, tasks, task.TypeTranscription, epoch)
	b := createTask(t, tasks, task.TypeCorrection, epoch.Add(time.Minute))
	c := createTask(t, tasks, task.TypeCorrection, epoch.Add(2*time.Minute))
	require.NoError(t, c.Start(epoch.Add(3*time.Minute)))
	require.NoError(t, tasks.Transition(ctx, c, task.StatusPending))

	ids := func(list []*task.Task) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(list))
		for _, tk := range list {
			out = append(out, tk.ID)
		}
		return out
	}

	all, err := tasks.List(ctx, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, ids(all))

	corrections, err := tasks.List(ctx, task.Filter{Type: task.TypeCorrection})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID}, ids(corrections))

	pendingCorrections, err := tasks.List(ctx, task.Filter{Type: task.TypeCorrection, Status: task.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, ids(pendingCorrections))

	limited, err := tasks.List(ctx, task.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids(limited))

	none, err := tasks.List(ctx, task.Filter{Status: task.StatusFailed})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTaskStoreListRunning(t *testing.T) {
	tasks := newTaskStore(t)
	ctx := context.Background()

	old := createTask(t, tasks, task.TypeTranscription, epoch)
	require.NoError(t, old.Start(epoch))
	require.NoError(t, tasks.Transition(ctx, old, task.StatusPending))

	fresh := createTask(t, tasks, task.TypeSummary, epoch)
	require.NoError(t, fresh.Start(epoch.Add(time.Hour)))
	require.NoError(t, tasks.Transition(ctx, fresh, task.StatusPending))

	createTask(t, tasks, task.TypeCorrection, epoch)

	stale, err := tasks.ListRunning(ctx, epoch.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}
