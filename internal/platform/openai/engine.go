package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/platform/logger"
)

// ProviderName is recorded in stage metadata for OpenAI completions.
const ProviderName = "openai"

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Engine implements generation.Engine using OpenAI chat completions.
type Engine struct {
	client chatCompleter
	logger *slog.Logger
}

var _ generation.Engine = (*Engine)(nil)

// NewEngine creates an OpenAI engine from the LLM configuration. BaseURL
// points the client at any OpenAI-compatible endpoint.
func NewEngine(cfg config.LLMConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return newEngine(goopenai.NewClientWithConfig(clientConfig), logger), nil
}

func newEngine(client chatCompleter, logger *slog.Logger) *Engine {
	return &Engine{
		client: client,
		logger: logger.With(slog.String("component", "openai_engine")),
	}
}

// Provider implements generation.Engine.
func (e *Engine) Provider() string { return ProviderName }

// Complete implements generation.Engine.
func (e *Engine) Complete(ctx context.Context, req generation.Request) (string, error) {
	return e.chat(ctx, req, nil)
}

// CompleteStructured implements generation.Engine.
func (e *Engine) CompleteStructured(ctx context.Context, req generation.Request, schema *generation.Schema, out any) error {
	name := "response"
	if schema != nil && schema.Name != "" {
		name = schema.Name
	}
	format := &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: toDefinition(schema),
			Strict: false,
		},
	}

	text, err := e.chat(ctx, req, format)
	if err != nil {
		return err
	}
	return generation.DecodeJSON(text, out)
}

func (e *Engine) chat(ctx context.Context, req generation.Request, format *goopenai.ChatCompletionResponseFormat) (string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)
	if req.Model == "" {
		return "", fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	log.Debug("calling OpenAI API", slog.String("model", req.Model), slog.Int("prompt_length", len(req.Prompt)))

	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature:    temperature(req.Temperature),
		ResponseFormat: format,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", generation.ErrInvalidResponse)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: content filtered", generation.ErrContentBlocked)
	}
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

// temperature converts t for the request. The client omits a zero
// temperature, which the API reads as its default of 1, so zero is sent as
// the smallest positive float32.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// classifyError maps HTTP 429 and throttling messages to
// generation.ErrRateLimited. Context errors are returned unchanged.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	}
	if generation.IsRateLimitMessage(err.Error()) {
		return fmt.Errorf("%w: %v", generation.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}

var dataTypes = map[generation.SchemaType]jsonschema.DataType{
	generation.TypeObject:  jsonschema.Object,
	generation.TypeArray:   jsonschema.Array,
	generation.TypeString:  jsonschema.String,
	generation.TypeNumber:  jsonschema.Number,
	generation.TypeInteger: jsonschema.Integer,
	generation.TypeBoolean: jsonschema.Boolean,
}

// toDefinition converts a schema to a JSON Schema definition. Nullable
// properties are left out of Required.
func toDefinition(s *generation.Schema) *jsonschema.Definition {
	if s == nil {
		return &jsonschema.Definition{Type: jsonschema.Object}
	}
	def := &jsonschema.Definition{
		Type:        dataTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
	}
	if s.Items != nil {
		def.Items = toDefinition(s.Items)
	}
	if len(s.Properties) > 0 {
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for name, prop := range s.Properties {
			def.Properties[name] = *toDefinition(prop)
		}
	}
	return def
}
