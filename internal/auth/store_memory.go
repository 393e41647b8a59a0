package auth

import (
	"context"
	"sync"
)

// NewInMemoryTokenStore returns a TokenStore backed by an in-memory map.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]string)}
}

// InMemoryTokenStore implements TokenStore for tests and local development.
type InMemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *InMemoryTokenStore) SetRefreshToken(_ context.Context, accountID, token string) error {
	s.mu.Lock()
	s.tokens[accountID] = token
	s.mu.Unlock()
	return nil
}

func (s *InMemoryTokenStore) SwapRefreshToken(_ context.Context, accountID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.tokens[accountID]; !ok || stored != current {
		return ErrSessionNotFound
	}
	s.tokens[accountID] = next
	return nil
}

func (s *InMemoryTokenStore) ClearRefreshToken(_ context.Context, accountID string) error {
	s.mu.Lock()
	delete(s.tokens, accountID)
	s.mu.Unlock()
	return nil
}

// Current returns the stored token for accountID. Useful for tests.
func (s *InMemoryTokenStore) Current(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[accountID]
}
