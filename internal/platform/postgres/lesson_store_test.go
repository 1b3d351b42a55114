package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/platform/postgres"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/phrazzld/lectern/internal/testdb"
)

func newLesson(t *testing.T) *domain.Lesson {
	t.Helper()
	lesson, err := domain.NewLesson("Cours 1", "cours1.mp3")
	require.NoError(t, err)
	return lesson
}

func TestLessonStoreCreateAndGet(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		lessons := postgres.NewLessonStore(tx, testdb.Dialect, logger.Discard())

		lesson := newLesson(t)
		require.NoError(t, lessons.Create(ctx, lesson))
		assert.NotZero(t, lesson.ID)

		got, err := lessons.GetByID(ctx, lesson.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cours 1", got.Title)
		assert.Equal(t, "cours1.mp3", got.Filename)
		assert.Nil(t, got.Transcript)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.TranscriptMetadata)
		assert.WithinDuration(t, lesson.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
	})
}

func TestLessonStoreUpdateRoundTripsStages(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	lessons := postgres.NewLessonStore(db, testdb.Dialect, logger.Discard())

	lesson := newLesson(t)
	require.NoError(t, lessons.Create(ctx, lesson))

	excerpt := "Connais-toi toi-même"
	summary := "Une leçon sur Socrate."
	temp := 0.3
	lesson.SetTranscript([]domain.Segment{
		{Start: 0, End: 2.5, Text: "Bonjour"},
		{Start: 2.5, End: 6, Text: "à tous"},
	}, domain.TranscriptMetadata{ModelSize: "large-v3", Device: "cuda", ComputeType: "int8", BeamSize: 5, Language: "fr"})
	lesson.CorrectedTranscript = []domain.Segment{{Start: 0, End: 6, Text: "Bonjour à tous."}}
	lesson.CorrectionMetadata = &domain.StageMetadata{Provider: "openai", Model: "gpt-4o", Temperature: &temp, Prompt: "Corrige."}
	lesson.EditedTranscript = []domain.EditedPart{{
		Start: 0, End: 6, Text: "Bonjour à tous.",
		Sources: []domain.Source{{Author: "Platon", Work: "Apologie", Reference: "21d", Text: "...", CitedExcerpt: &excerpt}},
	}}
	lesson.Summary = &summary
	require.NoError(t, lessons.Update(ctx, lesson))

	got, err := lessons.GetByID(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, lesson.Transcript, got.Transcript)
	assert.Equal(t, lesson.CorrectedTranscript, got.CorrectedTranscript)
	assert.Equal(t, lesson.EditedTranscript, got.EditedTranscript)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 6.0, *got.Duration)
	require.NotNil(t, got.TranscriptMetadata)
	assert.Equal(t, "large-v3", got.TranscriptMetadata.ModelSize)
	require.NotNil(t, got.CorrectionMetadata)
	assert.Equal(t, 0.3, *got.CorrectionMetadata.Temperature)
	assert.Equal(t, summary, *got.Summary)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestLessonStoreNotFound(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	lessons := postgres.NewLessonStore(db, testdb.Dialect, logger.Discard())

	_, err := lessons.GetByID(ctx, 404)
	assert.ErrorIs(t, err, store.ErrLessonNotFound)
	assert.True(t, store.IsNotFoundError(err))

	missing := newLesson(t)
	missing.ID = 404
	assert.ErrorIs(t, lessons.Update(ctx, missing), store.ErrLessonNotFound)
}

func TestLessonStoreRejectsInvalidLesson(t *testing.T) {
	db := testdb.Open(t)
	lessons := postgres.NewLessonStore(db, testdb.Dialect, logger.Discard())

	err := lessons.Create(context.Background(), &domain.Lesson{Title: "no file"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestLessonStoreWithTxRollback(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	lessons := postgres.NewLessonStore(db, testdb.Dialect, logger.Discard())

	lesson := newLesson(t)
	require.NoError(t, lessons.Create(ctx, lesson))

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		txLessons := lessons.WithTx(tx)
		summary := "brouillon"
		lesson.Summary = &summary
		require.NoError(t, txLessons.Update(ctx, lesson))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := lessons.GetByID(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Summary)
}
