// internal/session/memory.go
package session

import (
	"context"
	"sync"
	"time"
)

type memStore struct {
	mu      sync.RWMutex
	byToken map[string]Session
}

// NewMemoryStore returns an in-memory Store for dev and tests.
func NewMemoryStore() Store {
	return &memStore{byToken: map[string]Session{}}
}

func (m *memStore) Insert(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byToken[s.Token] = s
	return nil
}

func (m *memStore) GetByToken(ctx context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byToken[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byToken, token)
	return nil
}

func (m *memStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.byToken {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.byToken, token)
			n++
		}
	}
	return n, nil
}
