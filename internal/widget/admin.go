package widget

import (
	"context"
	"errors"
	"fmt"

	"chatguard/internal/audit"
	"chatguard/internal/security"
	"chatguard/pkg/tenants"
)

// Admin mutation errors are user-visible failure reasons, surfaced verbatim.
var (
	ErrDomainExists  = errors.New("Domain already exists")
	ErrDomainMissing = errors.New("Domain not found")
	ErrInvalidLevel  = errors.New("Invalid security level")
	ErrNoSecret      = errors.New("JWT secret not configured for organization")
)

// UpdateSecurityLevel switches a tenant between basic and jwt_required.
func (s *Service) UpdateSecurityLevel(ctx context.Context, orgID string, level tenants.SecurityLevel, adminUserID string) error {
	if !level.Valid() {
		return ErrInvalidLevel
	}
	if err := s.orgs.UpdateSecurityLevel(ctx, orgID, level); err != nil {
		return err
	}
	s.audit.Record(audit.PolicyChange(orgID, "security_level_update", adminUserID, map[string]any{
		"security_level": string(level),
	}))
	return nil
}

// AddAllowedDomain appends one entry to the allow-list. Duplicates are
// rejected.
func (s *Service) AddAllowedDomain(ctx context.Context, orgID, domain, adminUserID string) error {
	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		return err
	}
	for _, d := range cfg.AllowedDomains {
		if d == domain {
			return ErrDomainExists
		}
	}
	updated := append(cfg.AllowedDomains, domain)
	if err := s.orgs.UpdateAllowedDomains(ctx, orgID, updated); err != nil {
		return err
	}
	s.audit.Record(audit.PolicyChange(orgID, "domain_added", adminUserID, map[string]any{
		"added_domain":  domain,
		"total_domains": len(updated),
	}))
	return nil
}

// RemoveAllowedDomain drops one entry from the allow-list. Removing an
// absent domain is rejected.
func (s *Service) RemoveAllowedDomain(ctx context.Context, orgID, domain, adminUserID string) error {
	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		return err
	}
	updated := make([]string, 0, len(cfg.AllowedDomains))
	found := false
	for _, d := range cfg.AllowedDomains {
		if d == domain {
			found = true
			continue
		}
		updated = append(updated, d)
	}
	if !found {
		return ErrDomainMissing
	}
	if err := s.orgs.UpdateAllowedDomains(ctx, orgID, updated); err != nil {
		return err
	}
	s.audit.Record(audit.PolicyChange(orgID, "domain_removed", adminUserID, map[string]any{
		"removed_domain": domain,
		"total_domains":  len(updated),
	}))
	return nil
}

// RotateJWTSecret replaces the tenant's signing secret and returns the new
// value. Callers decide how much of it to reveal.
func (s *Service) RotateJWTSecret(ctx context.Context, orgID, adminUserID string) (string, error) {
	secret, err := security.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	if err := s.orgs.UpdateJWTSecret(ctx, orgID, secret); err != nil {
		return "", err
	}
	s.audit.Record(audit.PolicyChange(orgID, "jwt_secret_rotation", adminUserID, map[string]any{
		"secret_rotated": true,
	}))
	return secret, nil
}

// CreateSampleJWT signs a test token with the tenant's current secret, the
// way a customer's backend would.
func (s *Service) CreateSampleJWT(ctx context.Context, orgID, userIdentifier, domain string, userData map[string]any) (string, error) {
	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		return "", err
	}
	if cfg.JWTSigningSecret == "" {
		return "", ErrNoSecret
	}
	return security.SignSampleToken(cfg.JWTSigningSecret, orgID, userIdentifier, domain, userData)
}
