package domain

import "errors"

var (
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRecord signals a source record that cannot be transformed.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidSchema signals an invalid attribute table or document shape.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted token budget or provider rate limit.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)
