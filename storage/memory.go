// In-memory storage backends.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"
)

// InMemoryTranscript implements Transcript using an in-memory map.
// Data is lost when process terminates.
type InMemoryTranscript struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewInMemoryTranscript creates a new in-memory transcript.
func NewInMemoryTranscript() *InMemoryTranscript {
	return &InMemoryTranscript{
		sessions: make(map[string][]Turn),
	}
}

// Append adds a turn to a session.
func (s *InMemoryTranscript) Append(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

// Load returns a copy of the session's turns.
func (s *InMemoryTranscript) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Clear removes a session.
func (s *InMemoryTranscript) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// InMemoryVectorCache implements VectorCache using an in-memory map.
type InMemoryVectorCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewInMemoryVectorCache creates an empty cache.
func NewInMemoryVectorCache() *InMemoryVectorCache {
	return &InMemoryVectorCache{
		vectors: make(map[string][]float32),
	}
}

// Get returns a copy of the cached vector.
func (c *InMemoryVectorCache) Get(ctx context.Context, model, hash string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.vectors[model+"\x00"+hash]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), v...), true, nil
}

// Put stores a copy of vector.
func (c *InMemoryVectorCache) Put(ctx context.Context, model, hash string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vectors[model+"\x00"+hash] = append([]float32(nil), vector...)
	return nil
}

// Verify implementations
var (
	_ Transcript  = (*InMemoryTranscript)(nil)
	_ VectorCache = (*InMemoryVectorCache)(nil)
)
