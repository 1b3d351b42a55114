package generation

import "context"

// Request is a single prompt sent to a language model.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
}

// Engine generates text from prompts.
type Engine interface {
	// Provider names the backing service, recorded in stage metadata.
	Provider() string

	// Complete returns the model's free-text reply.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStructured asks for a JSON reply matching schema and decodes
	// it into out. Replies that do not decode return ErrInvalidResponse.
	CompleteStructured(ctx context.Context, req Request, schema *Schema, out any) error
}
