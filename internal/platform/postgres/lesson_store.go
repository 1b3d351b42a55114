package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/store"
)

// LessonStore implements store.LessonStore.
type LessonStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.LessonStore = (*LessonStore)(nil)

// NewLessonStore creates a lesson store over db. If logger is nil the
// default logger is used.
func NewLessonStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *LessonStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LessonStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "lesson_store")),
	}
}

// WithTx implements store.LessonStore.
func (s *LessonStore) WithTx(tx *sql.Tx) store.LessonStore {
	return &LessonStore{db: tx, dialect: s.dialect, logger: s.logger}
}

const lessonColumns = `id, course_id, title, filename, date, duration,
	transcript, corrected_transcript, edited_transcript, brief, summary,
	transcript_metadata, correction_metadata, edited_metadata, summary_metadata,
	created_at, updated_at`

// lessonParams encodes the mutable columns in the order both INSERT and
// UPDATE bind them.
func lessonParams(l *domain.Lesson) ([]any, error) {
	jsonColumns := []any{
		l.Transcript, l.CorrectedTranscript, l.EditedTranscript,
	}
	metaColumns := []any{
		l.TranscriptMetadata, l.CorrectionMetadata, l.EditedMetadata, l.SummaryMetadata,
	}

	params := []any{l.CourseID, l.Title, l.Filename, nullTime(l.Date), l.Duration}
	for _, v := range jsonColumns {
		p, err := jsonParam(v)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	params = append(params, l.Brief, l.Summary)
	for _, v := range metaColumns {
		p, err := jsonParam(v)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// Create implements store.LessonStore.
func (s *LessonStore) Create(ctx context.Context, lesson *domain.Lesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := lesson.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	params, err := lessonParams(lesson)
	if err != nil {
		return err
	}
	params = append(params, lesson.CreatedAt.UTC(), lesson.UpdatedAt)

	query := s.dialect.Rebind(`
		INSERT INTO lessons (course_id, title, filename, date, duration,
			transcript, corrected_transcript, edited_transcript, brief, summary,
			transcript_metadata, correction_metadata, edited_metadata, summary_metadata,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`)

	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&lesson.ID); err != nil {
		log.Error("failed to create lesson", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("lesson created", slog.Int64("lesson_id", lesson.ID))
	return nil
}

// GetByID implements store.LessonStore.
func (s *LessonStore) GetByID(ctx context.Context, id int64) (*domain.Lesson, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`)

	var (
		l                              domain.Lesson
		courseID                       sql.NullInt64
		date                           sql.NullTime
		duration                       sql.NullFloat64
		transcript, corrected, edited  []byte
		brief, summary                 sql.NullString
		transcriptMeta, correctionMeta []byte
		editedMeta, summaryMeta        []byte
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &courseID, &l.Title, &l.Filename, &date, &duration,
		&transcript, &corrected, &edited, &brief, &summary,
		&transcriptMeta, &correctionMeta, &editedMeta, &summaryMeta,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrLessonNotFound
	}
	if err != nil {
		log.Error("failed to get lesson", slog.Int64("lesson_id", id), slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if courseID.Valid {
		l.CourseID = &courseID.Int64
	}
	if date.Valid {
		t := date.Time.UTC()
		l.Date = &t
	}
	if duration.Valid {
		l.Duration = &duration.Float64
	}
	if brief.Valid {
		l.Brief = &brief.String
	}
	if summary.Valid {
		l.Summary = &summary.String
	}

	decoders := []struct {
		raw []byte
		dst any
	}{
		{transcript, &l.Transcript},
		{corrected, &l.CorrectedTranscript},
		{edited, &l.EditedTranscript},
		{transcriptMeta, &l.TranscriptMetadata},
		{correctionMeta, &l.CorrectionMetadata},
		{editedMeta, &l.EditedMetadata},
		{summaryMeta, &l.SummaryMetadata},
	}
	for _, d := range decoders {
		if err := scanJSON(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("lesson %d: %w", id, err)
		}
	}

	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

// Update implements store.LessonStore.
func (s *LessonStore) Update(ctx context.Context, lesson *domain.Lesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := lesson.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	lesson.UpdatedAt = time.Now().UTC()

	params, err := lessonParams(lesson)
	if err != nil {
		return err
	}
	params = append(params, lesson.UpdatedAt, lesson.ID)

	query := s.dialect.Rebind(`
		UPDATE lessons SET
			course_id = $1, title = $2, filename = $3, date = $4, duration = $5,
			transcript = $6, corrected_transcript = $7, edited_transcript = $8,
			brief = $9, summary = $10,
			transcript_metadata = $11, correction_metadata = $12,
			edited_metadata = $13, summary_metadata = $14,
			updated_at = $15
		WHERE id = $16`)

	result, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		log.Error("failed to update lesson", slog.Int64("lesson_id", lesson.ID), slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrLessonNotFound)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
