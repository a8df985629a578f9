// internal/models/model.go
package models

import (
	"context"
	"errors"
	"fmt"
)

// Model is the interface all provider backends must implement.
// Generate blocks until the full completion is available; retries for
// transient failures happen inside the client, not in callers.
type Model interface {
	// ID returns a short identifier for logging (e.g. "openai/gpt-4o").
	ID() string

	// Generate sends the message sequence and returns the completion text
	// plus the provider's token accounting.
	Generate(ctx context.Context, messages []Message) (string, Usage, error)
}

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	// Transient failures (rate limits, 5xx, network flaps) are retried by
	// the client up to its retry budget.
	Transient ErrorKind = iota
	// Permanent failures (bad request, auth) are never retried.
	Permanent
)

// ProviderError is a failure reported by an LLM provider.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status when applicable, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Kind == Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s provider error (HTTP %d): %v", e.Provider, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s provider error: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a transient provider error.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == Transient
}
