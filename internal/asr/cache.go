package asr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ModelCache holds at most one loaded model per ModelSpec.
type ModelCache struct {
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	models map[ModelSpec]Model
}

// NewModelCache creates an empty cache that loads models with load.
func NewModelCache(load Loader, logger *slog.Logger) *ModelCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelCache{
		load:   load,
		logger: logger.With("component", "asr_model_cache"),
		models: make(map[ModelSpec]Model),
	}
}

// Get returns the cached model for spec, loading it on first use. Loading
// holds the cache lock, so concurrent callers for the same spec share one
// load.
func (c *ModelCache) Get(ctx context.Context, spec ModelSpec) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[spec]; ok {
		return m, nil
	}

	c.logger.Info("loading speech model",
		"model_size", spec.Size,
		"device", spec.Device,
		"compute_type", spec.ComputeType)

	m, err := c.load(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s on %s: %v", ErrModelUnavailable, spec.Size, spec.Device, err)
	}
	c.models[spec] = m
	return m, nil
}

// Evict closes and forgets the model for spec, if loaded.
func (c *ModelCache) Evict(spec ModelSpec) {
	c.mu.Lock()
	m, ok := c.models[spec]
	delete(c.models, spec)
	c.mu.Unlock()

	if ok {
		c.closeModel(spec, m)
	}
}

// Invalidate closes and forgets every loaded model.
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	models := c.models
	c.models = make(map[ModelSpec]Model)
	c.mu.Unlock()

	for spec, m := range models {
		c.closeModel(spec, m)
	}
}

// Len returns the number of loaded models.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}

func (c *ModelCache) closeModel(spec ModelSpec, m Model) {
	if err := m.Close(); err != nil {
		c.logger.Warn("failed to close speech model", "model_size", spec.Size, "error", err)
	}
}
