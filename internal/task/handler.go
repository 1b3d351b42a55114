package task

import (
	"context"

	"github.com/phrazzld/lectern/internal/domain"
)

// Handler executes tasks of one type.
type Handler interface {
	Type() Type
	Handle(ctx context.Context, params Params) (Result, error)
}

// LessonService loads lessons and persists stage outputs. Each Save call
// writes the stage output and its metadata in a single transaction.
type LessonService interface {
	GetLesson(ctx context.Context, id int64) (*domain.Lesson, error)
	SaveTranscript(ctx context.Context, id int64, segments []domain.Segment, meta domain.TranscriptMetadata) error
	SaveCorrection(ctx context.Context, id int64, segments []domain.Segment, meta domain.StageMetadata) error
	SaveEdition(ctx context.Context, id int64, parts []domain.EditedPart, meta domain.StageMetadata) error
	SaveSummary(ctx context.Context, id int64, summary string, meta domain.StageMetadata) error
}

// stageMetadata records how an LLM stage output was produced.
func stageMetadata(provider, model string, temperature float64, prompt string) domain.StageMetadata {
	return domain.StageMetadata{
		Provider:    provider,
		Model:       model,
		Temperature: &temperature,
		Prompt:      prompt,
	}
}

// orDefault returns *override when set, else fallback.
func orDefault(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}
