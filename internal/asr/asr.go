package asr

import (
	"context"
	"errors"

	"github.com/phrazzld/lectern/internal/domain"
)

// ErrModelUnavailable wraps failures to load or reach a speech model.
var ErrModelUnavailable = errors.New("speech model unavailable")

// ModelSpec identifies a loaded model. Two specs that compare equal can
// share one model instance.
type ModelSpec struct {
	Size        string
	Device      string
	ComputeType string
}

// Options are per-request decoding settings.
type Options struct {
	Language      string
	BeamSize      int
	VADFilter     bool
	InitialPrompt string
}

// Model is a loaded speech model.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]domain.Segment, error)
	Close() error
}

// Loader loads the model described by spec.
type Loader func(ctx context.Context, spec ModelSpec) (Model, error)

// Result is a transcription together with the settings that produced it.
type Result struct {
	Segments []domain.Segment
	Metadata domain.TranscriptMetadata
}

// Engine transcribes audio files.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}
