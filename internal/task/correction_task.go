package task

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/lectern/internal/batch"
	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/generation"
)

var correctionSchema = &generation.Schema{
	Name: "corrected_transcript_group",
	Type: generation.TypeObject,
	Properties: map[string]*generation.Schema{
		"segments": {
			Type:        generation.TypeArray,
			Description: "List of corrected segments",
			Items: &generation.Schema{
				Type: generation.TypeObject,
				Properties: map[string]*generation.Schema{
					"id":   {Type: generation.TypeInteger, Description: "Segment index matching the input"},
					"text": {Type: generation.TypeString, Description: "Corrected text"},
				},
				Required: []string{"id", "text"},
			},
		},
	},
	Required: []string{"segments"},
}

type correctionReply struct {
	Segments []struct {
		ID   int    `json:"id"`
		Text string `json:"text"`
	} `json:"segments"`
}

// CorrectionHandler fixes transcription errors segment by segment. Timing
// is never changed; only text is rewritten.
type CorrectionHandler struct {
	lessons LessonService
	engine  generation.Engine
	cfg     config.Provider
	retry   batch.RetryPolicy
	logger  *slog.Logger
}

var _ Handler = (*CorrectionHandler)(nil)

// NewCorrectionHandler creates a CorrectionHandler.
func NewCorrectionHandler(
	lessons LessonService,
	engine generation.Engine,
	cfg config.Provider,
	retry batch.RetryPolicy,
	logger *slog.Logger,
) (*CorrectionHandler, error) {
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
	return &CorrectionHandler{
		lessons: lessons,
		engine:  engine,
		cfg:     cfg,
		retry:   retry,
		logger:  logger.With("component", "correction_handler"),
	}, nil
}

// Type implements Handler.
func (h *CorrectionHandler) Type() Type { return TypeCorrection }

// Handle implements Handler.
func (h *CorrectionHandler) Handle(ctx context.Context, params Params) (Result, error) {
	p, ok := params.(CorrectionParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected correction parameters, got %T", ErrInvalidParams, params)
	}
	stage := h.cfg.Current().Correction
	groupSize := orDefault(p.SegmentsPerGroup, stage.SegmentsPerGroup)
	concurrency := orDefault(p.MaxConcurrency, stage.MaxConcurrency)
	log := h.logger.With("lesson_id", p.LessonID)

	lesson, err := h.lessons.GetLesson(ctx, p.LessonID)
	if err != nil {
		return nil, err
	}
	if len(lesson.Transcript) == 0 {
		return nil, fmt.Errorf("%w: lesson %d has not been transcribed", ErrMissingTranscript, p.LessonID)
	}

	log.Info("correcting transcript",
		"segments", len(lesson.Transcript),
		"segments_per_group", groupSize,
		"max_concurrency", concurrency)

	transform := func(ctx context.Context, g batch.Group[domain.Segment]) ([]domain.Segment, error) {
		var reply correctionReply
		req := generation.Request{
			Prompt:      CorrectionPrompt(stage.Prompt, g.Items),
			Model:       stage.Model,
			Temperature: stage.Temperature,
		}
		if err := h.engine.CompleteStructured(ctx, req, correctionSchema, &reply); err != nil {
			return nil, err
		}
		return applyCorrections(g.Items, reply, log), nil
	}

	keepOriginal := func(g batch.Group[domain.Segment], _ error) []domain.Segment {
		return append([]domain.Segment(nil), g.Items...)
	}

	corrected, stats, err := batch.Map(ctx, lesson.Transcript, batch.Options{
		GroupSize:      groupSize,
		MaxConcurrency: concurrency,
		Retry:          h.retry,
		Logger:         log,
	}, transform, keepOriginal)
	if err != nil {
		return nil, err
	}

	meta := stageMetadata(h.engine.Provider(), stage.Model, stage.Temperature, stage.Prompt)
	if err := h.lessons.SaveCorrection(ctx, p.LessonID, corrected, meta); err != nil {
		return nil, err
	}

	if stats.DegradedGroups > 0 {
		log.Warn("some groups kept their original text", "degraded_groups", stats.DegradedGroups)
	}
	log.Info("correction saved", "groups", stats.Groups, "attempts", stats.Attempts)

	return CorrectionResult{
		Message:          "Correction completed successfully",
		LessonID:         p.LessonID,
		SegmentsPerGroup: groupSize,
		MaxConcurrency:   concurrency,
		SegmentCount:     len(corrected),
		BatchStats: BatchStats{
			Groups:         stats.Groups,
			DegradedGroups: stats.DegradedGroups,
			Attempts:       stats.Attempts,
		},
	}, nil
}

// CorrectionPrompt numbers the group's segments from 1 and appends them to
// instruction.
func CorrectionPrompt(instruction string, segments []domain.Segment) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nSegments to correct:\n")
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(seg.Text)
	}
	return b.String()
}

// applyCorrections maps reply ids (1-based) back onto segments. Segments
// missing from the reply keep their original text.
func applyCorrections(segments []domain.Segment, reply correctionReply, log *slog.Logger) []domain.Segment {
	byID := make(map[int]string, len(reply.Segments))
	for _, s := range reply.Segments {
		byID[s.ID] = s.Text
	}
	out := make([]domain.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if text, ok := byID[i+1]; ok {
			out[i].Text = text
		} else {
			log.Warn("segment missing from correction reply, keeping original", "id", i+1)
		}
	}
	return out
}
