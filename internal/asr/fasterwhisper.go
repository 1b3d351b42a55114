package asr

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/phrazzld/lectern/internal/domain"
)

//go:embed assets/faster_whisper_server.py
var helperScript []byte

type helperRequest struct {
	Audio         string  `json:"audio"`
	Language      string  `json:"language,omitempty"`
	BeamSize      int     `json:"beam_size"`
	VADFilter     bool    `json:"vad_filter"`
	InitialPrompt *string `json:"initial_prompt,omitempty"`
}

type helperResponse struct {
	Ready    bool             `json:"ready,omitempty"`
	Language string           `json:"language,omitempty"`
	Segments []domain.Segment `json:"segments"`
	Error    string           `json:"error,omitempty"`
}

// helperModel is a Model served by a long-lived helper process. Requests
// are serialized; the helper answers each JSON line with one JSON line.
type helperModel struct {
	mu     sync.Mutex
	enc    *json.Encoder
	dec    *json.Decoder
	close  func() error
	broken bool
}

func newHelperModel(stdin io.Writer, stdout io.Reader, closeFn func() error) *helperModel {
	return &helperModel{
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(bufio.NewReader(stdout)),
		close: closeFn,
	}
}

// awaitReady blocks until the helper reports that the model is loaded.
func (m *helperModel) awaitReady(ctx context.Context) error {
	_, err := m.roundTrip(ctx, nil)
	return err
}

func (m *helperModel) roundTrip(ctx context.Context, req *helperRequest) (*helperResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.broken {
		return nil, fmt.Errorf("%w: helper process exited", ErrModelUnavailable)
	}

	type reply struct {
		resp helperResponse
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		if req != nil {
			if err := m.enc.Encode(req); err != nil {
				done <- reply{err: err}
				return
			}
		}
		var resp helperResponse
		err := m.dec.Decode(&resp)
		done <- reply{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		// The helper's stream is now out of step; it cannot be reused.
		m.broken = true
		_ = m.close()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			m.broken = true
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, r.err)
		}
		if r.resp.Error != "" {
			return nil, fmt.Errorf("faster-whisper: %s", r.resp.Error)
		}
		return &r.resp, nil
	}
}

// Transcribe implements Model.
func (m *helperModel) Transcribe(ctx context.Context, audioPath string, opts Options) ([]domain.Segment, error) {
	req := &helperRequest{
		Audio:     audioPath,
		Language:  opts.Language,
		BeamSize:  opts.BeamSize,
		VADFilter: opts.VADFilter,
	}
	if opts.InitialPrompt != "" {
		req.InitialPrompt = &opts.InitialPrompt
	}

	resp, err := m.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}

	segments := make([]domain.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		s.Text = strings.TrimSpace(s.Text)
		segments = append(segments, s)
	}
	return segments, nil
}

// Close implements Model.
func (m *helperModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken = true
	return m.close()
}

// FasterWhisperLoader returns a Loader that starts the embedded
// faster-whisper helper with the given Python interpreter.
func FasterWhisperLoader(python string, logger *slog.Logger) Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, spec ModelSpec) (Model, error) {
		dir, err := os.MkdirTemp("", "lectern-asr-")
		if err != nil {
			return nil, fmt.Errorf("create helper dir: %w", err)
		}
		script := filepath.Join(dir, "faster_whisper_server.py")
		if err := os.WriteFile(script, helperScript, 0o600); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("write helper script: %w", err)
		}

		cmd := exec.Command(python, script,
			"--model", spec.Size,
			"--device", spec.Device,
			"--compute-type", spec.ComputeType)
		cmd.Env = os.Environ()

		stdin, err := cmd.StdinPipe()
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("helper stdin: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("helper stdout: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("helper stderr: %w", err)
		}

		if err := cmd.Start(); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("start %s: %w", python, err)
		}

		log := logger.With("component", "faster_whisper", "model_size", spec.Size, "pid", cmd.Process.Pid)
		go func() {
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				log.Debug("helper output", "line", scanner.Text())
			}
		}()

		var once sync.Once
		closeFn := func() error {
			var err error
			once.Do(func() {
				_ = stdin.Close()
				if killErr := cmd.Process.Kill(); killErr != nil && !strings.Contains(killErr.Error(), "process already finished") {
					err = killErr
				}
				_ = cmd.Wait()
				_ = os.RemoveAll(dir)
				log.Info("helper stopped")
			})
			return err
		}

		model := newHelperModel(stdin, stdout, closeFn)
		if err := model.awaitReady(ctx); err != nil {
			_ = closeFn()
			return nil, err
		}
		log.Info("helper ready")
		return model, nil
	}
}
