package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/task"
)

// LessonService loads lessons and persists stage outputs transactionally.
type LessonService struct {
	lessons store.LessonStore
	db      *sql.DB
	logger  *slog.Logger
}

var _ task.LessonService = (*LessonService)(nil)

// NewLessonService creates a LessonService. Stage writes run in
// transactions on db.
func NewLessonService(lessons store.LessonStore, db *sql.DB, logger *slog.Logger) (*LessonService, error) {
	if lessons == nil {
		return nil, &LessonServiceError{Operation: "create_service", Message: "lessons cannot be nil"}
	}
	if db == nil {
		return nil, &LessonServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LessonService{
		lessons: lessons,
		db:      db,
		logger:  logger.With(slog.String("component", "lesson_service")),
	}, nil
}

// GetLesson returns the lesson with id or ErrLessonNotFound.
func (s *LessonService) GetLesson(ctx context.Context, id int64) (*domain.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, NewLessonServiceError("get_lesson", id, "failed to load lesson", err)
	}
	return lesson, nil
}

// SaveTranscript stores the raw transcript, its metadata and the derived
// lesson duration.
func (s *LessonService) SaveTranscript(ctx context.Context, id int64, segments []domain.Segment, meta domain.TranscriptMetadata) error {
	return s.update(ctx, "save_transcript", id, func(l *domain.Lesson) {
		l.SetTranscript(segments, meta)
	})
}

// SaveCorrection stores the corrected transcript and its metadata.
func (s *LessonService) SaveCorrection(ctx context.Context, id int64, segments []domain.Segment, meta domain.StageMetadata) error {
	return s.update(ctx, "save_correction", id, func(l *domain.Lesson) {
		l.CorrectedTranscript = segments
		l.CorrectionMetadata = &meta
	})
}

// SaveEdition stores the edited transcript and its metadata.
func (s *LessonService) SaveEdition(ctx context.Context, id int64, parts []domain.EditedPart, meta domain.StageMetadata) error {
	return s.update(ctx, "save_edition", id, func(l *domain.Lesson) {
		l.EditedTranscript = parts
		l.EditedMetadata = &meta
	})
}

// SaveSummary stores the summary and its metadata.
func (s *LessonService) SaveSummary(ctx context.Context, id int64, summary string, meta domain.StageMetadata) error {
	return s.update(ctx, "save_summary", id, func(l *domain.Lesson) {
		l.Summary = &summary
		l.SummaryMetadata = &meta
	})
}

// update applies fn to a fresh copy of the lesson and writes it back in
// one transaction.
func (s *LessonService) update(ctx context.Context, op string, id int64, fn func(*domain.Lesson)) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.Int64("lesson_id", id),
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txLessons := s.lessons.WithTx(tx)

		lesson, err := txLessons.GetByID(ctx, id)
		if err != nil {
			return err
		}
		fn(lesson)
		return txLessons.Update(ctx, lesson)
	})
	if err != nil {
		if !errors.Is(err, store.ErrLessonNotFound) {
			log.Error("failed to save lesson stage", slog.String("error", err.Error()))
		}
		return NewLessonServiceError(op, id, "failed to save lesson stage", err)
	}

	log.Debug("lesson stage saved")
	return nil
}
