package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrSchemaMissing indicates one or more warehouse tables do not exist
	ErrSchemaMissing = errors.New("warehouse schema missing")

	// ErrUnsupported indicates an operation the selected engine cannot perform
	ErrUnsupported = errors.New("unsupported")
)
