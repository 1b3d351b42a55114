package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phrazzld/lectern/internal/batch"
	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/domain"
	"github.com/phrazzld/lectern/internal/store"
)

// fakeLessons is an in-memory LessonService.
type fakeLessons struct {
	mu      sync.Mutex
	lessons map[int64]*domain.Lesson
	saveErr error
	saves   int
}

func newFakeLessons(lessons ...*domain.Lesson) *fakeLessons {
	f := &fakeLessons{lessons: make(map[int64]*domain.Lesson)}
	for _, l := range lessons {
		f.lessons[l.ID] = l
	}
	return f
}

func (f *fakeLessons) GetLesson(_ context.Context, id int64) (*domain.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return nil, fmt.Errorf("lesson %d: %w", id, store.ErrLessonNotFound)
	}
	c := *l
	return &c, nil
}

func (f *fakeLessons) update(id int64, fn func(l *domain.Lesson)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	l, ok := f.lessons[id]
	if !ok {
		return store.ErrLessonNotFound
	}
	fn(l)
	f.saves++
	return nil
}

func (f *fakeLessons) SaveTranscript(_ context.Context, id int64, segments []domain.Segment, meta domain.TranscriptMetadata) error {
	return f.update(id, func(l *domain.Lesson) { l.SetTranscript(segments, meta) })
}

func (f *fakeLessons) SaveCorrection(_ context.Context, id int64, segments []domain.Segment, meta domain.StageMetadata) error {
	return f.update(id, func(l *domain.Lesson) {
		l.CorrectedTranscript = segments
		l.CorrectionMetadata = &meta
	})
}

func (f *fakeLessons) SaveEdition(_ context.Context, id int64, parts []domain.EditedPart, meta domain.StageMetadata) error {
	return f.update(id, func(l *domain.Lesson) {
		l.EditedTranscript = parts
		l.EditedMetadata = &meta
	})
}

func (f *fakeLessons) SaveSummary(_ context.Context, id int64, summary string, meta domain.StageMetadata) error {
	return f.update(id, func(l *domain.Lesson) {
		l.Summary = &summary
		l.SummaryMetadata = &meta
	})
}

func (f *fakeLessons) lesson(id int64) *domain.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lessons[id]
}

func testConfig() *config.Holder {
	cfg := config.Defaults()
	cfg.Database.URL = "sqlite::memory:"
	cfg.Correction.Prompt = "Corrige."
	cfg.Edition.Prompt = "Rédige."
	return config.NewHolder(cfg)
}

func fastRetry() batch.RetryPolicy {
	return batch.RetryPolicy{
		MaxAttempts:    5,
		InitialDelay:   time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		JitterFraction: 0.1,
	}
}

func segments(texts ...string) []domain.Segment {
	out := make([]domain.Segment, len(texts))
	for i, text := range texts {
		out[i] = domain.Segment{Start: float64(i) * 2, End: float64(i)*2 + 2, Text: text}
	}
	return out
}

func transcribedLesson(id int64, texts ...string) *domain.Lesson {
	return &domain.Lesson{ID: id, Title: "Leçon", Filename: "lesson.mp3", Transcript: segments(texts...)}
}
