// Package domain contains the lesson and transcript entities the worker
// reads and writes: timed segments, edited parts with their literary
// sources, and the per-stage metadata recorded alongside each output.
// It has no knowledge of persistence or of the services that produce
// these values.
package domain
