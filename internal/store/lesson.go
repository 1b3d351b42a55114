package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lectern/internal/domain"
)

// LessonStore persists lessons and their stage outputs. Stage columns
// (transcripts, summary, metadata) are stored as JSON; callers only ever
// see typed domain values.
type LessonStore interface {
	// Create inserts lesson and sets its ID.
	Create(ctx context.Context, lesson *domain.Lesson) error

	// GetByID returns ErrLessonNotFound when no lesson has the id.
	GetByID(ctx context.Context, id int64) (*domain.Lesson, error)

	// Update overwrites every mutable column of the lesson and bumps
	// UpdatedAt. Returns ErrLessonNotFound when the lesson does not exist.
	Update(ctx context.Context, lesson *domain.Lesson) error

	// WithTx returns a store that runs its queries inside tx.
	WithTx(tx *sql.Tx) LessonStore
}
