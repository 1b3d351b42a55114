package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/lectern/internal/batch"
	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/generation"
)

// SummaryHandler writes a prose summary of a lesson from its transcript.
type SummaryHandler struct {
	lessons LessonService
	engine  generation.Engine
	cfg     config.Provider
	retry   batch.RetryPolicy
	logger  *slog.Logger
}

var _ Handler = (*SummaryHandler)(nil)

// NewSummaryHandler creates a SummaryHandler.
func NewSummaryHandler(
	lessons LessonService,
	engine generation.Engine,
	cfg config.Provider,
	retry batch.RetryPolicy,
	logger *slog.Logger,
) (*SummaryHandler, error) {
	if lessons == nil {
		return nil, ErrNilLessonService
	}
	if engine == nil {
		return nil, ErrNilEngine
	}
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryHandler{
		lessons: lessons,
		engine:  engine,
		cfg:     cfg,
		retry:   retry,
		logger:  logger.With("component", "summary_handler"),
	}, nil
}

// Type implements Handler.
func (h *SummaryHandler) Type() Type { return TypeSummary }

// Handle implements Handler.
func (h *SummaryHandler) Handle(ctx context.Context, params Params) (Result, error) {
	p, ok := params.(SummaryParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected summary parameters, got %T", ErrInvalidParams, params)
	}
	stage := h.cfg.Current().Summary
	useCorrected := p.PreferCorrected()
	log := h.logger.With("lesson_id", p.LessonID)

	lesson, err := h.lessons.GetLesson(ctx, p.LessonID)
	if err != nil {
		return nil, err
	}
	segments := lesson.BestTranscript(useCorrected)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: lesson %d has not been transcribed", ErrMissingTranscript, p.LessonID)
	}
	text := domain.JoinText(segments)
	if text == "" {
		return nil, fmt.Errorf("%w: lesson %d", ErrEmptyTranscript, p.LessonID)
	}

	selected, named := stage.SelectPrompt(p.PromptType)
	instruction := SummaryInstruction(selected.Text, stage.MaxLength)

	log.Info("generating summary",
		"characters", len(text),
		"segments", len(segments),
		"prompt_type", selected.Name)

	req := generation.Request{
		Prompt:      SummaryPrompt(instruction, text),
		Model:       stage.Model,
		Temperature: stage.Temperature,
	}
	var summary string
	attempts, err := h.retry.Do(ctx, log, func(ctx context.Context) error {
		reply, err := h.engine.Complete(ctx, req)
		if err != nil {
			return err
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			return fmt.Errorf("%w: empty summary", generation.ErrInvalidResponse)
		}
		summary = reply
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summary generation failed after %d attempts: %w", attempts, err)
	}

	promptInfo := instruction
	if named {
		promptInfo = "[" + selected.Name + "] " + instruction
	}
	meta := stageMetadata(h.engine.Provider(), stage.Model, stage.Temperature, promptInfo)
	if err := h.lessons.SaveSummary(ctx, p.LessonID, summary, meta); err != nil {
		return nil, err
	}

	log.Info("summary saved", "characters", len(summary), "attempts", attempts)

	return SummaryResult{
		Message:      "Summary generated successfully",
		LessonID:     p.LessonID,
		UseCorrected: useCorrected,
		PromptType:   selected.Name,
		Attempts:     attempts,
		SummaryWords: len(strings.Fields(summary)),
	}, nil
}

// SummaryInstruction adds the word limit to prompt when maxLength is positive.
func SummaryInstruction(prompt string, maxLength int) string {
	if maxLength > 0 {
		return fmt.Sprintf("%s\n\nPlease keep the summary under %d words.", prompt, maxLength)
	}
	return prompt
}

// SummaryPrompt appends the transcript text to instruction.
func SummaryPrompt(instruction, text string) string {
	return instruction + "\n\nTranscript:\n" + text
}
