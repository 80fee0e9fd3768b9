package tenants

import "time"

type SecurityLevel string

const (
	SecurityLevelBasic       SecurityLevel = "basic"
	SecurityLevelJWTRequired SecurityLevel = "jwt_required"
)

// DefaultSessionDuration applies when an organization has no explicit value.
const DefaultSessionDuration = 15 * time.Minute

// SecurityConfig is the per-organization chat-widget security posture.
type SecurityConfig struct {
	SecurityLevel SecurityLevel
	// AllowedDomains holds exact entries or "*.suffix" wildcards.
	// Empty means any domain is allowed (backward-compatibility policy).
	AllowedDomains []string
	// JWTSigningSecret is the shared HS256 secret; empty when no JWT flow
	// is configured for the organization.
	JWTSigningSecret string
	SessionDuration  time.Duration
}

func (l SecurityLevel) Valid() bool {
	return l == SecurityLevelBasic || l == SecurityLevelJWTRequired
}
