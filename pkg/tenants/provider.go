package tenants

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("organization not found")

type Provider interface {
	// GetSecurityConfig returns the security posture for one organization.
	// ErrNotFound when the organization does not exist.
	GetSecurityConfig(ctx context.Context, orgID string) (SecurityConfig, error)
	// UpdateSecurityLevel switches between basic and jwt_required.
	UpdateSecurityLevel(ctx context.Context, orgID string, level SecurityLevel) error
	// UpdateAllowedDomains replaces the full allow-list.
	UpdateAllowedDomains(ctx context.Context, orgID string, domains []string) error
	// UpdateJWTSecret stores a freshly rotated signing secret.
	UpdateJWTSecret(ctx context.Context, orgID, secret string) error
	// UpsertSecurityConfig writes a complete config (seeding, provisioning).
	UpsertSecurityConfig(ctx context.Context, orgID string, cfg SecurityConfig) error
}
