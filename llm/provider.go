// Package llm provides clients for the remote answer providers.
//
// Client interface - the abstract interface for a hosted LLM answer source.
// Each implementation hides:
// - SDK client construction and authentication
// - Prompt layout for the provider's API
// - Classification of provider failures into Aborted, CredentialError
//   and TransportError
// - Rate limiting

package llm

import (
	"context"
)

// Client answers a single query, optionally grounded on retrieved context.
type Client interface {
	// Name returns the provider's display label (for answers and logging).
	Name() string

	// Model returns the model the client talks to.
	Model() string

	// Call sends one request and returns the provider's text unmodified.
	// It fails with ErrAborted, *CredentialError or *TransportError.
	Call(ctx context.Context, query string, background []string) (string, error)
}

// KeyFunc returns the API key to use for the next call.
// It is invoked on every call so keys configured after startup are seen.
type KeyFunc func() (string, error)

// StaticKey returns a KeyFunc that always yields key.
func StaticKey(key string) KeyFunc {
	return func() (string, error) { return key, nil }
}
