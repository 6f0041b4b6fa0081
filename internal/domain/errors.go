package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving the core wraps exactly one of these.
var (
	ErrConfig     = errors.New("invalid configuration")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("vector store error")
	ErrEmbedding  = errors.New("embedding error")
	ErrIngest     = errors.New("ingestion error")
)

// NotFoundError names the entity a lookup failed to find.
type NotFoundError struct {
	Kind string // "section" or "chunk"
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "section" {
		return fmt.Sprintf("section %q not found; run ingestion first", e.Key)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a backend failure while keeping its detail.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// NewStoreError returns nil when err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// EmbeddingError wraps a model or backend failure of the embedder.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() []error { return []error{ErrEmbedding, e.Err} }

// Classify returns a short code for logs and transport mapping.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrEmbedding):
		return "embedding"
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrIngest):
		return "ingest"
	default:
		return "internal"
	}
}
