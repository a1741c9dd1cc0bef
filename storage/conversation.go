// Package storage provides vector-cache and in-session transcript storage.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interfaces
// - Allows swapping between memory and SQLite without API changes
// - Vector encoding (float32 blobs) is private to each backend

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// VectorCache stores document embeddings so an index build can skip
// re-embedding text it has already seen with the same model.
type VectorCache interface {
	// Get returns the cached vector for (model, hash).
	// The bool is false on a miss; error is reserved for storage failures.
	Get(ctx context.Context, model, hash string) ([]float32, bool, error)

	// Put stores a vector, replacing any previous value.
	Put(ctx context.Context, model, hash string, vector []float32) error
}

// HashText returns the content hash used as a cache key.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Turn is one query/outcome exchange within a session.
type Turn struct {
	ID      string
	Query   string
	Source  string
	Outcome string // "answer", "cancelled" or "failed"
	Text    string
	At      time.Time
}

// Transcript keeps the turns of the current session only.
// Nothing outlives the process.
type Transcript interface {
	// Append adds a turn to the end of the session.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// Load returns the session's turns in order.
	// Returns empty slice (not nil) if the session doesn't exist.
	Load(ctx context.Context, sessionID string) ([]Turn, error)

	// Clear removes all turns for a session.
	Clear(ctx context.Context, sessionID string) error
}
