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

var editionSchema = &generation.Schema{
	Name: "edited_transcript_group",
	Type: generation.TypeObject,
	Properties: map[string]*generation.Schema{
		"parts": {
			Type:        generation.TypeArray,
			Description: "List of edited parts (can combine multiple segments into one part)",
			Items: &generation.Schema{
				Type: generation.TypeObject,
				Properties: map[string]*generation.Schema{
					"start": {Type: generation.TypeNumber, Description: "Start time in seconds (from first segment)"},
					"end":   {Type: generation.TypeNumber, Description: "End time in seconds (from last segment)"},
					"text":  {Type: generation.TypeString, Description: "Rewritten text in clear, written style"},
					"sources": {
						Type:        generation.TypeArray,
						Description: "List of sources cited in this section",
						Items: &generation.Schema{
							Type: generation.TypeObject,
							Properties: map[string]*generation.Schema{
								"author":    {Type: generation.TypeString, Description: "Author name (e.g., Rashi, Cicero)"},
								"work":      {Type: generation.TypeString, Description: "Work title (e.g., Commentary on Genesis, De Officiis)"},
								"reference": {Type: generation.TypeString, Description: "Specific reference (e.g., Chapter 1:5, Book II)"},
								"text":      {Type: generation.TypeString, Description: "Relevant quote or text from the source"},
								"cited_excerpt": {
									Type:        generation.TypeString,
									Description: "The exact excerpt from the edited text that references this source",
									Nullable:    true,
								},
							},
							Required: []string{"author", "work", "reference", "text"},
						},
					},
				},
				Required: []string{"start", "end", "text", "sources"},
			},
		},
	},
	Required: []string{"parts"},
}

type editionReply struct {
	Parts []domain.EditedPart `json:"parts"`
}

// EditionHandler rewrites the transcript into edited prose parts with
// cited sources. Parts may merge several segments.
type EditionHandler struct {
	lessons LessonService
	engine  generation.Engine
	cfg     config.Provider
	retry   batch.RetryPolicy
	logger  *slog.Logger
}

var _ Handler = (*EditionHandler)(nil)

// NewEditionHandler creates an EditionHandler.
func NewEditionHandler(
	lessons LessonService,
	engine generation.Engine,
	cfg config.Provider,
	retry batch.RetryPolicy,
	logger *slog.Logger,
) (*EditionHandler, error) {
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
	return &EditionHandler{
		lessons: lessons,
		engine:  engine,
		cfg:     cfg,
		retry:   retry,
		logger:  logger.With("component", "edition_handler"),
	}, nil
}

// Type implements Handler.
func (h *EditionHandler) Type() Type { return TypeEdition }

// Handle implements Handler.
func (h *EditionHandler) Handle(ctx context.Context, params Params) (Result, error) {
	p, ok := params.(EditionParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected edition parameters, got %T", ErrInvalidParams, params)
	}
	stage := h.cfg.Current().Edition
	groupSize := orDefault(p.SegmentsPerGroup, stage.SegmentsPerGroup)
	concurrency := orDefault(p.MaxConcurrency, stage.MaxConcurrency)
	log := h.logger.With("lesson_id", p.LessonID)

	lesson, err := h.lessons.GetLesson(ctx, p.LessonID)
	if err != nil {
		return nil, err
	}
	segments := lesson.BestTranscript(true)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: lesson %d has not been transcribed", ErrMissingTranscript, p.LessonID)
	}

	log.Info("editing transcript",
		"segments", len(segments),
		"corrected", len(lesson.CorrectedTranscript) > 0,
		"segments_per_group", groupSize,
		"max_concurrency", concurrency)

	transform := func(ctx context.Context, g batch.Group[domain.Segment]) ([]domain.EditedPart, error) {
		var reply editionReply
		req := generation.Request{
			Prompt:      EditionPrompt(stage.Prompt, g.Items),
			Model:       stage.Model,
			Temperature: stage.Temperature,
		}
		if err := h.engine.CompleteStructured(ctx, req, editionSchema, &reply); err != nil {
			return nil, err
		}
		if len(reply.Parts) == 0 {
			return nil, fmt.Errorf("%w: no edited parts for group %d", generation.ErrInvalidResponse, g.Index)
		}
		return normalizeParts(reply.Parts), nil
	}

	parts, stats, err := batch.FlatMap(ctx, segments, batch.Options{
		GroupSize:      groupSize,
		MaxConcurrency: concurrency,
		Retry:          h.retry,
		Logger:         log,
	}, transform, spanGroup)
	if err != nil {
		return nil, err
	}

	sources, unverified := countCitations(parts, log)

	meta := stageMetadata(h.engine.Provider(), stage.Model, stage.Temperature, stage.Prompt)
	if err := h.lessons.SaveEdition(ctx, p.LessonID, parts, meta); err != nil {
		return nil, err
	}

	if stats.DegradedGroups > 0 {
		log.Warn("some groups were kept unedited", "degraded_groups", stats.DegradedGroups)
	}
	log.Info("edition saved", "parts", len(parts), "groups", stats.Groups, "attempts", stats.Attempts)

	return EditionResult{
		Message:             "Edition completed successfully",
		LessonID:            p.LessonID,
		SegmentsPerGroup:    groupSize,
		MaxConcurrency:      concurrency,
		SegmentCount:        len(segments),
		PartCount:           len(parts),
		SourceCount:         sources,
		UnverifiedCitations: unverified,
		BatchStats: BatchStats{
			Groups:         stats.Groups,
			DegradedGroups: stats.DegradedGroups,
			Attempts:       stats.Attempts,
		},
	}, nil
}

// EditionPrompt appends the group's timed lines to instruction.
func EditionPrompt(instruction string, segments []domain.Segment) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nTranscript to edit:\n")
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%.1fs - %.1fs] %s", seg.Start, seg.End, seg.Text)
	}
	return b.String()
}

// spanGroup is the edition fallback: one unedited part covering the group.
func spanGroup(g batch.Group[domain.Segment], _ error) []domain.EditedPart {
	texts := make([]string, len(g.Items))
	for i, seg := range g.Items {
		texts[i] = seg.Text
	}
	return []domain.EditedPart{{
		Start:   g.Items[0].Start,
		End:     g.Items[len(g.Items)-1].End,
		Text:    strings.Join(texts, " "),
		Sources: []domain.Source{},
	}}
}

func normalizeParts(parts []domain.EditedPart) []domain.EditedPart {
	for i := range parts {
		if parts[i].Sources == nil {
			parts[i].Sources = []domain.Source{}
		}
	}
	return parts
}

// countCitations returns the number of sources and how many of them cite an
// excerpt that does not appear verbatim in their part.
func countCitations(parts []domain.EditedPart, log *slog.Logger) (sources, unverified int) {
	for i, part := range parts {
		for _, src := range part.Sources {
			sources++
			if !src.ExcerptVerified(part.Text) {
				unverified++
				log.Debug("cited excerpt not found in part text",
					"part", i, "author", src.Author, "excerpt", *src.CitedExcerpt)
			}
		}
	}
	return sources, unverified
}
