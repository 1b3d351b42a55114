// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrNegativeStart is returned when a segment starts before zero.
	ErrNegativeStart = errors.New("segment start cannot be negative")

	// ErrEndBeforeStart is returned when a segment ends before it starts.
	ErrEndBeforeStart = errors.New("segment end cannot precede start")

	// ErrEmptyFilename is returned when a lesson has no audio file name.
	ErrEmptyFilename = errors.New("lesson filename cannot be empty")
)
