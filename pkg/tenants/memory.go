// pkg/tenants/memory.go
package tenants

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type memProvider struct {
	log  *zap.SugaredLogger
	mu   sync.RWMutex
	byID map[string]SecurityConfig
}

// NewMemoryProvider returns an in-memory Provider for dev and tests.
func NewMemoryProvider(log *zap.SugaredLogger) Provider {
	return &memProvider{log: log, byID: map[string]SecurityConfig{}}
}

func (m *memProvider) GetSecurityConfig(ctx context.Context, orgID string) (SecurityConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.byID[orgID]
	if !ok {
		return SecurityConfig{}, ErrNotFound
	}
	if !cfg.SecurityLevel.Valid() {
		cfg.SecurityLevel = SecurityLevelBasic
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	// copy so callers cannot mutate the stored slice
	domains := make([]string, len(cfg.AllowedDomains))
	copy(domains, cfg.AllowedDomains)
	cfg.AllowedDomains = domains
	return cfg, nil
}

func (m *memProvider) UpdateSecurityLevel(ctx context.Context, orgID string, level SecurityLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.byID[orgID]
	if !ok {
		return ErrNotFound
	}
	cfg.SecurityLevel = level
	m.byID[orgID] = cfg
	return nil
}

func (m *memProvider) UpdateAllowedDomains(ctx context.Context, orgID string, domains []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.byID[orgID]
	if !ok {
		return ErrNotFound
	}
	cp := make([]string, len(domains))
	copy(cp, domains)
	cfg.AllowedDomains = cp
	m.byID[orgID] = cfg
	return nil
}

func (m *memProvider) UpdateJWTSecret(ctx context.Context, orgID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.byID[orgID]
	if !ok {
		return ErrNotFound
	}
	cfg.JWTSigningSecret = secret
	m.byID[orgID] = cfg
	return nil
}

func (m *memProvider) UpsertSecurityConfig(ctx context.Context, orgID string, cfg SecurityConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[orgID] = cfg
	return nil
}
