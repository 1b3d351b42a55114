package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lectern/internal/config"
	"github.com/phrazzld/lectern/internal/generation"
	"github.com/phrazzld/lectern/internal/platform/logger"
)

func TestNewEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.LLMConfig
		provider string
		wantErr  error
	}{
		{name: "openai", cfg: config.LLMConfig{Provider: "openai", APIKey: "sk-test"}, provider: "openai"},
		{name: "openai with base url", cfg: config.LLMConfig{Provider: "openai", APIKey: "sk-test", BaseURL: "http://localhost:11434/v1"}, provider: "openai"},
		{name: "gemini", cfg: config.LLMConfig{Provider: "gemini", APIKey: "test-key"}, provider: "gemini"},
		{name: "missing key", cfg: config.LLMConfig{Provider: "openai"}, wantErr: generation.ErrInvalidConfig},
		{name: "unknown provider", cfg: config.LLMConfig{Provider: "mistral", APIKey: "x"}, wantErr: generation.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine, err := newEngine(context.Background(), tt.cfg, logger.Discard())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, engine.Provider())
		})
	}
}
