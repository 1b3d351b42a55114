package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/task"
)

// TaskStore implements task.TaskStore.
type TaskStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ task.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a task store over db.
func NewTaskStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// WithTx implements task.TaskStore.
func (s *TaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &TaskStore{db: tx, dialect: s.dialect, logger: s.logger}
}

const taskColumns = `id, task_type, status, start_date, end_date, duration_us,
	parameters, result, error, created_at`

// Create implements task.TaskStore.
func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)

	_, err := s.db.ExecContext(ctx, query,
		t.ID, string(t.Type), string(t.Status),
		nullTime(t.StartDate), nullTime(t.EndDate), durationParam(t.Duration),
		string(t.Parameters), rawParam(t.Result), nullString(t.Error),
		t.CreatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create task", slog.String("task_id", t.ID.String()), slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("task created", slog.String("task_id", t.ID.String()), slog.String("task_type", string(t.Type)))
	return nil
}

// Get implements task.TaskStore.
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := s.dialect.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`)
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}
	return t, nil
}

// NextPending implements task.TaskStore.
func (s *TaskStore) NextPending(ctx context.Context) (*task.Task, error) {
	query := s.dialect.Rebind(`
		SELECT ` + taskColumns + ` FROM tasks
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT 1`)
	t, err := scanTask(s.db.QueryRowContext(ctx, query, string(task.StatusPending)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNoPendingTask
	}
	if err != nil {
		return nil, MapError(err)
	}
	return t, nil
}

// Transition implements task.TaskStore. The WHERE clause on the previous
// status makes the update a compare-and-set, so two workers racing for
// the same pending task cannot both claim it.
func (s *TaskStore) Transition(ctx context.Context, t *task.Task, from task.Status) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`
		UPDATE tasks SET
			status = $1, start_date = $2, end_date = $3, duration_us = $4,
			result = $5, error = $6
		WHERE id = $7 AND status = $8`)

	result, err := s.db.ExecContext(ctx, query,
		string(t.Status), nullTime(t.StartDate), nullTime(t.EndDate), durationParam(t.Duration),
		rawParam(t.Result), nullString(t.Error),
		t.ID, string(from),
	)
	if err != nil {
		log.Error("failed to transition task",
			slog.String("task_id", t.ID.String()),
			slog.String("from", string(from)),
			slog.String("to", string(t.Status)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	err = CheckRowsAffected(result, task.ErrTransitionConflict)
	if !errors.Is(err, task.ErrTransitionConflict) {
		return err
	}

	current, getErr := s.Get(ctx, t.ID)
	if getErr != nil {
		return getErr
	}
	return fmt.Errorf("%w: task %s is %s, expected %s", task.ErrTransitionConflict, t.ID, current.Status, from)
}

// List implements task.TaskStore.
func (s *TaskStore) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, "task_type = $"+strconv.Itoa(len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = task.DefaultListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	return s.query(ctx, s.dialect.Rebind(query), args...)
}

// ListRunning implements task.TaskStore.
func (s *TaskStore) ListRunning(ctx context.Context, startedBefore time.Time) ([]*task.Task, error) {
	query := s.dialect.Rebind(`
		SELECT ` + taskColumns + ` FROM tasks
		WHERE status = $1 AND start_date < $2
		ORDER BY start_date, id`)
	return s.query(ctx, query, string(task.StatusRunning), startedBefore.UTC())
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                  task.Task
		taskType, status   string
		startDate, endDate sql.NullTime
		durationUS         sql.NullInt64
		params, result     []byte
		errMsg             sql.NullString
	)
	if err := row.Scan(
		&t.ID, &taskType, &status, &startDate, &endDate, &durationUS,
		&params, &result, &errMsg, &t.CreatedAt,
	); err != nil {
		return nil, err
	}

	t.Type = task.Type(taskType)
	t.Status = task.Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	if startDate.Valid {
		v := startDate.Time.UTC()
		t.StartDate = &v
	}
	if endDate.Valid {
		v := endDate.Time.UTC()
		t.EndDate = &v
	}
	if durationUS.Valid {
		d := time.Duration(durationUS.Int64) * time.Microsecond
		t.Duration = &d
	}
	t.Parameters = json.RawMessage(params)
	if len(result) > 0 {
		t.Result = json.RawMessage(result)
	}
	t.Error = errMsg.String
	return &t, nil
}

func durationParam(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return d.Microseconds()
}

func rawParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
