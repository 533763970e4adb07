package models

import "errors"

// Error taxonomy of the ingestion pipeline. Unmapped devices and unknown
// attribute tags are outcomes, not errors, and have no sentinel here.
var (
	// ErrMalformed marks a message missing its required shape or identity
	// field. Dropped after tracing.
	ErrMalformed = errors.New("malformed message")

	// ErrDecode marks a recognized attribute whose mandatory fields are
	// missing or invalid. Dropped after tracing.
	ErrDecode = errors.New("decode error")

	// ErrStore marks a transient persistence failure. Surfaced to the
	// pipeline caller as retryable; the core does not retry.
	ErrStore = errors.New("store failure")
)
