package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/lectern/internal/domain"
)

// Transcriber is the Engine used by the transcription stage. It resolves
// the configured model through a ModelCache and records the settings used.
type Transcriber struct {
	cache  *ModelCache
	logger *slog.Logger

	mu   sync.RWMutex
	spec ModelSpec
}

var _ Engine = (*Transcriber)(nil)

// NewTranscriber creates a Transcriber for spec.
func NewTranscriber(cache *ModelCache, spec ModelSpec, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{cache: cache, spec: spec, logger: logger.With("component", "transcriber")}
}

// Spec returns the model spec currently in use.
func (t *Transcriber) Spec() ModelSpec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spec
}

// SetSpec switches to a new model spec. When it differs from the current
// one, every cached model is released; the next transcription loads the
// new model.
func (t *Transcriber) SetSpec(spec ModelSpec) {
	t.mu.Lock()
	changed := spec != t.spec
	t.spec = spec
	t.mu.Unlock()

	if changed {
		t.logger.Info("speech model settings changed, invalidating model cache",
			"model_size", spec.Size, "device", spec.Device, "compute_type", spec.ComputeType)
		t.cache.Invalidate()
	}
}

// Transcribe implements Engine.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	spec := t.Spec()

	model, err := t.cache.Get(ctx, spec)
	if err != nil {
		return nil, err
	}

	segments, err := model.Transcribe(ctx, audioPath, opts)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			t.cache.Evict(spec)
		}
		return nil, fmt.Errorf("transcription of %s failed: %w", audioPath, err)
	}

	meta := domain.TranscriptMetadata{
		ModelSize:   spec.Size,
		Device:      spec.Device,
		ComputeType: spec.ComputeType,
		BeamSize:    opts.BeamSize,
		VADFilter:   opts.VADFilter,
		Language:    opts.Language,
	}
	if opts.InitialPrompt != "" {
		prompt := opts.InitialPrompt
		meta.InitialPrompt = &prompt
	}

	return &Result{Segments: segments, Metadata: meta}, nil
}
