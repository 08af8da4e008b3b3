package token

import (
	"context"
	"sync"
)

// MemoryStore keeps issued tokens in memory for testing.
type MemoryStore struct {
	mu     sync.Mutex
	tokens []IssuedToken
}

// NewMemoryStore builds an in-memory issued-token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends the token to the in-memory log.
func (s *MemoryStore) Record(_ context.Context, t IssuedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, t)
	return nil
}

// All returns a snapshot of every recorded token.
func (s *MemoryStore) All() []IssuedToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]IssuedToken, len(s.tokens))
	copy(out, s.tokens)
	return out
}
