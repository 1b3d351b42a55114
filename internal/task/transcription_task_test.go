package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/lectern/internal/asr"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/phrazzld/lectern/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeASR struct {
	segments []domain.Segment
	err      error
	path     string
	opts     asr.Options
}

func (f *fakeASR) Transcribe(_ context.Context, audioPath string, opts asr.Options) (*asr.Result, error) {
	f.path = audioPath
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &asr.Result{
		Segments: f.segments,
		Metadata: domain.TranscriptMetadata{
			ModelSize: "large-v3", Device: "cuda", ComputeType: "int8",
			BeamSize: opts.BeamSize, VADFilter: opts.VADFilter, Language: opts.Language,
		},
	}, nil
}

func TestTranscriptionHandler(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T, engine asr.Engine, files ...string) (*TranscriptionHandler, *fakeLessons) {
		t.Helper()
		dir := t.TempDir()
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("ID3"), 0o600))
		}
		cfg := testConfig()
		cfg.Current().Storage.AudioDir = dir
		cfg.Current().Transcribe.InitialPrompt = "Cours de philosophie"

		lessons := newFakeLessons(&domain.Lesson{ID: 1, Title: "Éthique", Filename: "ethique.mp3"})
		h, err := NewTranscriptionHandler(lessons, engine, cfg, logger.Discard())
		require.NoError(t, err)
		return h, lessons
	}

	t.Run("stores segments duration and metadata", func(t *testing.T) {
		t.Parallel()
		engine := &fakeASR{segments: []domain.Segment{
			{Start: 0, End: 3.5, Text: "Bonjour."},
			{Start: 3.5, End: 61.25, Text: "Spinoza."},
		}}
		h, lessons := setup(t, engine, "ethique.mp3")

		res, err := h.Handle(context.Background(), TranscriptionParams{LessonID: 1})
		require.NoError(t, err)

		assert.Equal(t, "ethique.mp3", filepath.Base(engine.path))
		assert.Equal(t, asr.Options{Language: "fr", BeamSize: 5, VADFilter: true, InitialPrompt: "Cours de philosophie"}, engine.opts)

		lesson := lessons.lesson(1)
		assert.Len(t, lesson.Transcript, 2)
		require.NotNil(t, lesson.Duration)
		assert.Equal(t, 61.25, *lesson.Duration)
		require.NotNil(t, lesson.TranscriptMetadata)
		assert.Equal(t, "large-v3", lesson.TranscriptMetadata.ModelSize)

		result := res.(TranscriptionResult)
		assert.Equal(t, 2, result.SegmentCount)
		assert.Equal(t, 61.25, *result.Duration)
	})

	t.Run("empty transcription keeps duration unset", func(t *testing.T) {
		t.Parallel()
		h, lessons := setup(t, &fakeASR{}, "ethique.mp3")

		res, err := h.Handle(context.Background(), TranscriptionParams{LessonID: 1})
		require.NoError(t, err)
		assert.Nil(t, lessons.lesson(1).Duration)
		assert.Nil(t, res.(TranscriptionResult).Duration)
	})

	t.Run("missing audio file", func(t *testing.T) {
		t.Parallel()
		engine := &fakeASR{}
		h, lessons := setup(t, engine)

		_, err := h.Handle(context.Background(), TranscriptionParams{LessonID: 1})
		assert.ErrorIs(t, err, ErrAudioNotFound)
		assert.True(t, store.IsNotFoundError(err))
		assert.Empty(t, engine.path)
		assert.Zero(t, lessons.saves)
	})

	t.Run("engine failure writes nothing", func(t *testing.T) {
		t.Parallel()
		h, lessons := setup(t, &fakeASR{err: errors.New("CUDA out of memory")}, "ethique.mp3")

		_, err := h.Handle(context.Background(), TranscriptionParams{LessonID: 1})
		assert.ErrorContains(t, err, "CUDA out of memory")
		assert.Zero(t, lessons.saves)
	})

	t.Run("unknown lesson", func(t *testing.T) {
		t.Parallel()
		h, _ := setup(t, &fakeASR{}, "ethique.mp3")
		_, err := h.Handle(context.Background(), TranscriptionParams{LessonID: 2})
		assert.ErrorIs(t, err, store.ErrLessonNotFound)
	})

	t.Run("wrong parameter type", func(t *testing.T) {
		t.Parallel()
		h, _ := setup(t, &fakeASR{}, "ethique.mp3")
		_, err := h.Handle(context.Background(), SummaryParams{LessonID: 1})
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestResolveAudio(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "audio")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "cours.mp3"), []byte("ID3"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o600))

	path, err := resolveAudio(dir, "2024/cours.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024", "cours.mp3"), path)

	for _, name := range []string{"", "../secret.txt", "2024/../../secret.txt", filepath.Join(root, "secret.txt"), "2024"} {
		_, err := resolveAudio(dir, name)
		assert.ErrorIs(t, err, ErrAudioNotFound, name)
	}
}
