// Package asr turns lesson audio into timed transcript segments.
//
// Loaded speech models are expensive, so they live in an explicit
// ModelCache keyed by model size, device and compute type. The cache is
// built once at startup and injected; callers invalidate it when the
// whisper configuration changes. The faster-whisper backend keeps one
// Python helper process per cached model and talks to it over JSON lines.
package asr
