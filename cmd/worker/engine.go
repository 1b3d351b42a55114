package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/platform/gemini"
	"github.com/phrazzld/lectern/internal/platform/openai"
)

// newEngine builds the language model engine for the configured provider.
func newEngine(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Engine, error) {
	switch cfg.Provider {
	case gemini.ProviderName:
		engine, err := gemini.NewEngine(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case openai.ProviderName:
		engine, err := openai.NewEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}
