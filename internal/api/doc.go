// Package api serves the worker's operational HTTP surface: health,
// task submission and inspection, and transcript search. Handlers
// translate HTTP requests into task request events and store reads; they
// never run pipeline stages themselves.
package api
