package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/platform/logger"
)

// ProviderName is recorded in stage metadata for Gemini completions.
const ProviderName = "gemini"

// contentGenerator is the part of genai.Models the engine uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Engine implements generation.Engine using the Gemini API.
type Engine struct {
	models contentGenerator
	logger *slog.Logger
}

var _ generation.Engine = (*Engine)(nil)

// NewEngine creates a Gemini engine from the LLM configuration.
func NewEngine(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newEngine(client.Models, logger), nil
}

func newEngine(models contentGenerator, logger *slog.Logger) *Engine {
	return &Engine{
		models: models,
		logger: logger.With(slog.String("component", "gemini_engine")),
	}
}

// Provider implements generation.Engine.
func (e *Engine) Provider() string { return ProviderName }

// Complete implements generation.Engine.
func (e *Engine) Complete(ctx context.Context, req generation.Request) (string, error) {
	return e.generate(ctx, req, generationConfig(req))
}

// CompleteStructured implements generation.Engine.
func (e *Engine) CompleteStructured(ctx context.Context, req generation.Request, schema *generation.Schema, out any) error {
	cfg := generationConfig(req)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = toGenaiSchema(schema)

	text, err := e.generate(ctx, req, cfg)
	if err != nil {
		return err
	}
	return generation.DecodeJSON(text, out)
}

func generationConfig(req generation.Request) *genai.GenerateContentConfig {
	temperature := float32(req.Temperature)
	return &genai.GenerateContentConfig{Temperature: &temperature}
}

func (e *Engine) generate(ctx context.Context, req generation.Request, cfg *genai.GenerateContentConfig) (string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)
	if req.Model == "" {
		return "", fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.Prompt}},
	}}

	log.Debug("calling Gemini API", slog.String("model", req.Model), slog.Int("prompt_length", len(req.Prompt)))

	resp, err := e.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", classifyError(err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// classifyError wraps throttling errors with generation.ErrRateLimited and
// everything else with generation.ErrGenerationFailed. Context errors are
// returned unchanged.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	if generation.IsRateLimitMessage(msg) || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}
