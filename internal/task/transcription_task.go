package task

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/lectern/internal/asr"
	"github.com/phrazzld/lectern/internal/config"
)

// TranscriptionHandler transcribes a lesson's audio file and stores the
// segments, the lesson duration and the transcription settings.
type TranscriptionHandler struct {
	lessons LessonService
	engine  asr.Engine
	cfg     config.Provider
	logger  *slog.Logger
}

var _ Handler = (*TranscriptionHandler)(nil)

// NewTranscriptionHandler creates a TranscriptionHandler.
func NewTranscriptionHandler(
	lessons LessonService,
	engine asr.Engine,
	cfg config.Provider,
	logger *slog.Logger,
) (*TranscriptionHandler, error) {
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
	return &TranscriptionHandler{
		lessons: lessons,
		engine:  engine,
		cfg:     cfg,
		logger:  logger.With("component", "transcription_handler"),
	}, nil
}

// Type implements Handler.
func (h *TranscriptionHandler) Type() Type { return TypeTranscription }

// Handle implements Handler.
func (h *TranscriptionHandler) Handle(ctx context.Context, params Params) (Result, error) {
	p, ok := params.(TranscriptionParams)
	if !ok {
		return nil, fmt.Errorf("%w: expected transcription parameters, got %T", ErrInvalidParams, params)
	}
	cfg := h.cfg.Current()
	log := h.logger.With("lesson_id", p.LessonID)

	lesson, err := h.lessons.GetLesson(ctx, p.LessonID)
	if err != nil {
		return nil, err
	}

	audioPath, err := resolveAudio(cfg.Storage.AudioDir, lesson.Filename)
	if err != nil {
		return nil, err
	}

	opts := asr.Options{
		Language:      cfg.Transcribe.Language,
		BeamSize:      cfg.Transcribe.BeamSize,
		VADFilter:     cfg.Transcribe.VADFilter,
		InitialPrompt: cfg.Transcribe.InitialPrompt,
	}
	log.Info("transcribing audio", "audio_path", audioPath, "language", opts.Language)

	res, err := h.engine.Transcribe(ctx, audioPath, opts)
	if err != nil {
		return nil, err
	}

	if err := h.lessons.SaveTranscript(ctx, p.LessonID, res.Segments, res.Metadata); err != nil {
		return nil, err
	}

	result := TranscriptionResult{
		Message:      "Transcription completed successfully",
		LessonID:     p.LessonID,
		SegmentCount: len(res.Segments),
		AudioFile:    lesson.Filename,
	}
	if n := len(res.Segments); n > 0 {
		d := res.Segments[n-1].End
		result.Duration = &d
	}
	log.Info("transcription saved", "segments", result.SegmentCount)
	return result, nil
}

// resolveAudio returns the path of filename under dir, failing with
// ErrAudioNotFound when it escapes dir or does not name an existing
// regular file.
func resolveAudio(dir, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: lesson has no audio filename", ErrAudioNotFound)
	}
	if !filepath.IsLocal(filename) {
		return "", fmt.Errorf("%w: %s is outside the audio directory", ErrAudioNotFound, filename)
	}
	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAudioNotFound, filename)
		}
		return "", fmt.Errorf("stat audio file %s: %w", filename, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrAudioNotFound, filename)
	}
	return path, nil
}
