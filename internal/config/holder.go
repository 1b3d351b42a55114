package config

import "sync/atomic"

// Provider gives components the configuration in effect right now.
type Provider interface {
	Current() *Config
}

// Holder is a Provider whose configuration can be replaced while the
// worker runs. Tasks already in flight keep the snapshot they read.
type Holder struct {
	cfg atomic.Pointer[Config]
}

var _ Provider = (*Holder)(nil)

// NewHolder returns a Holder initialised with cfg.
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.cfg.Store(cfg)
	return h
}

// Current returns the active configuration.
func (h *Holder) Current() *Config {
	return h.cfg.Load()
}

// Set replaces the active configuration.
func (h *Holder) Set(cfg *Config) {
	h.cfg.Store(cfg)
}
