package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/lectern/internal/generation"
)

// MockEngine implements generation.Engine for testing.
type MockEngine struct {
	// CompleteFn returns the free-text reply for Complete.
	CompleteFn func(ctx context.Context, req generation.Request) (string, error)

	// StructuredFn returns the raw JSON reply for CompleteStructured. The
	// reply is decoded with generation.DecodeJSON like a real provider's.
	StructuredFn func(ctx context.Context, req generation.Request, schema *generation.Schema) (string, error)

	// ProviderName is returned by Provider; defaults to "mock".
	ProviderName string

	mu       sync.Mutex
	requests []generation.Request
}

var _ generation.Engine = (*MockEngine)(nil)

// Provider implements generation.Engine.
func (m *MockEngine) Provider() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Complete implements generation.Engine.
func (m *MockEngine) Complete(ctx context.Context, req generation.Request) (string, error) {
	m.record(req)
	if m.CompleteFn == nil {
		return "", nil
	}
	return m.CompleteFn(ctx, req)
}

// CompleteStructured implements generation.Engine.
func (m *MockEngine) CompleteStructured(ctx context.Context, req generation.Request, schema *generation.Schema, out any) error {
	m.record(req)
	if m.StructuredFn == nil {
		return generation.DecodeJSON("{}", out)
	}
	text, err := m.StructuredFn(ctx, req, schema)
	if err != nil {
		return err
	}
	return generation.DecodeJSON(text, out)
}

// Requests returns a copy of every request received so far.
func (m *MockEngine) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// CallCount returns the number of requests received.
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockEngine) record(req generation.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
}
