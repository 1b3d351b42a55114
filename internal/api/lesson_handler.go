package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/lectern/internal/api/shared"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/search"
	"github.com/phrazzld/lectern/internal/task"
)

// LessonReader loads lessons for search.
type LessonReader interface {
	GetLesson(ctx context.Context, id int64) (*domain.Lesson, error)
}

// LessonHandler serves transcript search.
type LessonHandler struct {
	lessons LessonReader
	logger  *slog.Logger
}

// NewLessonHandler creates a LessonHandler.
func NewLessonHandler(lessons LessonReader, logger *slog.Logger) *LessonHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LessonHandler{
		lessons: lessons,
		logger:  logger.With(slog.String("component", "lesson_handler")),
	}
}

// SearchLesson handles GET /api/lessons/{id}/search?q=...&threshold=...&max=...
func (h *LessonHandler) SearchLesson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid ID", err)
		return
	}

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid q: field is required")
		return
	}

	var opts search.Options
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid threshold", err)
			return
		}
		if math.IsNaN(threshold) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid threshold")
			return
		}
		opts.Threshold = &threshold
	}
	if raw := q.Get("max"); raw != "" {
		opts.MaxMatches, err = strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid max", err)
			return
		}
	}

	resp, err := SearchLesson(r.Context(), h.lessons, id, query, opts)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// SearchLesson searches the corrected transcript of a lesson, falling
// back to the raw transcript when no correction exists. It returns
// task.ErrMissingTranscript when the lesson has neither.
func SearchLesson(ctx context.Context, lessons LessonReader, id int64, query string, opts search.Options) (*SearchResponse, error) {
	lesson, err := lessons.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	source, segments := "corrected", lesson.CorrectedTranscript
	if len(segments) == 0 {
		source, segments = "raw", lesson.Transcript
	}
	if len(segments) == 0 {
		return nil, task.ErrMissingTranscript
	}

	return &SearchResponse{
		LessonID: id,
		Query:    query,
		Source:   source,
		Matches:  search.Segments(segments, query, opts),
	}, nil
}
