// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
)

// Common application errors.
var (
	// ErrNotFound distinguishes "no matching row" from infrastructure
	// failures on lookup operations.
	ErrNotFound = errors.New("not found")

	// ErrUnknownTaxonomyID rejects writes that reference a taxonomy entry
	// that does not exist.
	ErrUnknownTaxonomyID = errors.New("unknown taxonomy id")

	// ErrEmbeddingUnavailable wraps embedding model load and inference
	// failures.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrDimensionMismatch indicates vectors of incompatible dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
