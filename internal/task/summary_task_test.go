package task

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/mocks"
	"github.com/phrazzld/lectern/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryInstruction(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Résume.\n\nPlease keep the summary under 300 words.", SummaryInstruction("Résume.", 300))
	assert.Equal(t, "Résume.", SummaryInstruction("Résume.", 0))
	assert.Equal(t, "I\n\nTranscript:\nbonjour", SummaryPrompt("I", "bonjour"))
}

func TestSummaryHandler(t *testing.T) {
	t.Parallel()

	newHandler := func(t *testing.T, lessons LessonService, engine generation.Engine, cfg *config.Holder) *SummaryHandler {
		t.Helper()
		if cfg == nil {
			cfg = testConfig()
		}
		h, err := NewSummaryHandler(lessons, engine, cfg, fastRetry(), logger.Discard())
		require.NoError(t, err)
		return h
	}

	withPrompts := func() *config.Holder {
		cfg := testConfig()
		c := cfg.Current()
		c.Summary.Prompts = []config.NamedPrompt{
			{Name: "Bref", Text: "Résume brièvement."},
			{Name: "Détaillé", Text: "Résume en détail."},
		}
		c.Summary.MaxLength = 150
		return cfg
	}

	t.Run("uses named prompt and corrected transcript", func(t *testing.T) {
		t.Parallel()
		lesson := transcribedLesson(1, "brut")
		lesson.CorrectedTranscript = []domain.Segment{{Start: 0, End: 1, Text: " Bonjour "}, {Start: 1, End: 2, Text: "à tous. "}}
		lessons := newFakeLessons(lesson)
		engine := &mocks.MockEngine{ProviderName: "openai", CompleteFn: func(context.Context, generation.Request) (string, error) {
			return "  Une leçon d'introduction.\n", nil
		}}
		h := newHandler(t, lessons, engine, withPrompts())

		res, err := h.Handle(context.Background(), SummaryParams{LessonID: 1, PromptType: "Détaillé"})
		require.NoError(t, err)

		req := engine.Requests()[0]
		assert.Equal(t,
			"Résume en détail.\n\nPlease keep the summary under 150 words.\n\nTranscript:\nBonjour  à tous.",
			req.Prompt)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)

		saved := lessons.lesson(1)
		require.NotNil(t, saved.Summary)
		assert.Equal(t, "Une leçon d'introduction.", *saved.Summary)
		assert.Equal(t, "[Détaillé] Résume en détail.\n\nPlease keep the summary under 150 words.", saved.SummaryMetadata.Prompt)

		result := res.(SummaryResult)
		assert.True(t, result.UseCorrected)
		assert.Equal(t, "Détaillé", result.PromptType)
		assert.Equal(t, 3, result.SummaryWords)
	})

	t.Run("unknown prompt type uses first prompt", func(t *testing.T) {
		t.Parallel()
		lessons := newFakeLessons(transcribedLesson(1, "texte"))
		engine := &mocks.MockEngine{CompleteFn: func(context.Context, generation.Request) (string, error) { return "ok", nil }}
		h := newHandler(t, lessons, engine, withPrompts())

		res, err := h.Handle(context.Background(), SummaryParams{LessonID: 1, PromptType: "Inconnu"})
		require.NoError(t, err)
		assert.Equal(t, "Bref", res.(SummaryResult).PromptType)
		assert.Contains(t, engine.Requests()[0].Prompt, "Résume brièvement.")
	})

	t.Run("raw transcript when corrected not requested", func(t *testing.T) {
		t.Parallel()
		lesson := transcribedLesson(1, "brut")
		lesson.CorrectedTranscript = segments("corrigé")
		lessons := newFakeLessons(lesson)
		engine := &mocks.MockEngine{CompleteFn: func(context.Context, generation.Request) (string, error) { return "ok", nil }}
		h := newHandler(t, lessons, engine, nil)

		_, err := h.Handle(context.Background(), SummaryParams{LessonID: 1, UseCorrected: ptr(false)})
		require.NoError(t, err)
		assert.Contains(t, engine.Requests()[0].Prompt, "Transcript:\nbrut")
	})

	t.Run("built-in default prompt without metadata name", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Current().Summary.Prompts = nil
		cfg.Current().Summary.MaxLength = 0
		lessons := newFakeLessons(transcribedLesson(1, "texte"))
		engine := &mocks.MockEngine{CompleteFn: func(context.Context, generation.Request) (string, error) { return "ok", nil }}
		h := newHandler(t, lessons, engine, cfg)

		_, err := h.Handle(context.Background(), SummaryParams{LessonID: 1})
		require.NoError(t, err)
		assert.Equal(t, config.DefaultSummaryPrompt+"\n\nTranscript:\ntexte", engine.Requests()[0].Prompt)
		assert.Equal(t, config.DefaultSummaryPrompt, lessons.lesson(1).SummaryMetadata.Prompt)
	})

	t.Run("blank transcript fails", func(t *testing.T) {
		t.Parallel()
		lessons := newFakeLessons(transcribedLesson(1, " ", ""))
		engine := &mocks.MockEngine{}
		h := newHandler(t, lessons, engine, nil)

		_, err := h.Handle(context.Background(), SummaryParams{LessonID: 1})
		assert.ErrorIs(t, err, ErrEmptyTranscript)
		assert.Zero(t, engine.CallCount())
	})

	t.Run("exhausted retries fail the task", func(t *testing.T) {
		t.Parallel()
		lessons := newFakeLessons(transcribedLesson(1, "texte"))
		engine := &mocks.MockEngine{CompleteFn: func(context.Context, generation.Request) (string, error) {
			return "", errors.New("429 rate limit")
		}}
		h := newHandler(t, lessons, engine, nil)

		_, err := h.Handle(context.Background(), SummaryParams{LessonID: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 5 attempts")
		assert.Equal(t, 5, engine.CallCount())
		assert.Nil(t, lessons.lesson(1).Summary)
	})
}
