// Package widget composes the security components into the single
// "can this visitor start or resume a chat" decision.
package widget

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chatguard/internal/audit"
	"chatguard/internal/security"
	"chatguard/internal/session"
	"chatguard/pkg/tenants"
)

type Service struct {
	log      *zap.SugaredLogger
	orgs     tenants.Provider
	sessions *session.Manager
	jwt      *security.JWTValidator
	limiter  *security.Limiter
	audit    audit.Recorder
}

func NewService(log *zap.SugaredLogger, orgs tenants.Provider, sessions *session.Manager, jwt *security.JWTValidator, limiter *security.Limiter, rec audit.Recorder) *Service {
	return &Service{log: log, orgs: orgs, sessions: sessions, jwt: jwt, limiter: limiter, audit: rec}
}

// InitResult is the outcome of a widget initialization attempt. Expected
// rejections are carried in Error; UserIdentifier is empty for anonymous
// sessions.
type InitResult struct {
	Success        bool
	SessionToken   string
	UserIdentifier string
	Error          string
	RateLimit      *security.RateLimitResult
}

// InitializeWidget runs the full decision chain: rate limit, tenant config,
// domain allow-list, JWT (when required or supplied), session issue. Every
// rejection emits exactly one unauthorized_access or type-specific event
// before returning; allow-list checks additionally record their own outcome.
func (s *Service) InitializeWidget(ctx context.Context, orgID string, info security.RequestInfo, userJWT string) InitResult {
	ip := info.ClientIP()

	rl := s.limiter.AllowWidgetRequest(orgID, ip)
	if !rl.Allowed {
		s.audit.Record(audit.RateLimitExceeded(orgID, ip, info.UserAgent, info.RequestID, rl.Remaining, rl.ResetTime))
		rateLimitedTotal.Inc()
		initTotal.WithLabelValues("rate_limited").Inc()
		return InitResult{Error: rl.Error, RateLimit: &rl}
	}

	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		if err == tenants.ErrNotFound {
			return s.initFailure(orgID, info, "", "Organization not found")
		}
		s.log.Errorw("load security config", "org", orgID, "err", err)
		return s.initFailure(orgID, info, "", "Organization not found")
	}

	domain, haveDomain := info.Domain()
	if len(cfg.AllowedDomains) > 0 {
		if !haveDomain {
			return s.initFailure(orgID, info, "", "Unable to determine request domain")
		}
		if !security.MatchesAllowedDomains(domain, cfg.AllowedDomains) {
			s.audit.Record(audit.DomainValidation(orgID, domain, ip, info.UserAgent, info.RequestID, cfg.AllowedDomains, audit.OutcomeFailure))
			return s.initFailure(orgID, info, domain, fmt.Sprintf("Domain '%s' is not authorized for this widget", domain))
		}
		s.audit.Record(audit.DomainValidation(orgID, domain, ip, info.UserAgent, info.RequestID, cfg.AllowedDomains, audit.OutcomeSuccess))
	}

	userIdentifier := ""
	if cfg.SecurityLevel == tenants.SecurityLevelJWTRequired || userJWT != "" {
		if userJWT == "" {
			return s.initFailure(orgID, info, domain, "JWT authentication required for this organization")
		}
		if cfg.JWTSigningSecret == "" {
			return s.initFailure(orgID, info, domain, "JWT secret not configured for organization")
		}
		res := s.jwt.Validate(ctx, userJWT, cfg.JWTSigningSecret, orgID, domain)
		if !res.Valid {
			s.audit.Record(audit.JWTValidation(orgID, "", domain, ip, info.UserAgent, info.RequestID, audit.OutcomeFailure, res.Error))
			jwtValidationTotal.WithLabelValues("failure").Inc()
			initTotal.WithLabelValues("rejected").Inc()
			return InitResult{Error: res.Error}
		}
		userIdentifier = res.Claims.Subject
		s.audit.Record(audit.JWTValidation(orgID, userIdentifier, domain, ip, info.UserAgent, info.RequestID, audit.OutcomeSuccess, ""))
		jwtValidationTotal.WithLabelValues("success").Inc()
	}

	token, err := s.sessions.Initialize(ctx, orgID, domain, userIdentifier, cfg.SessionDuration)
	if err != nil {
		s.log.Errorw("create chat session", "org", orgID, "err", err)
		initTotal.WithLabelValues("error").Inc()
		return InitResult{Error: "Failed to create chat session"}
	}

	s.audit.Record(audit.ChatWidgetInit(orgID, userIdentifier, domain, ip, info.UserAgent, info.RequestID, string(cfg.SecurityLevel), token))
	initTotal.WithLabelValues("success").Inc()
	return InitResult{Success: true, SessionToken: token, UserIdentifier: userIdentifier, RateLimit: &rl}
}

func (s *Service) initFailure(orgID string, info security.RequestInfo, domain, reason string) InitResult {
	s.audit.Record(audit.UnauthorizedAccess(orgID, "chat_widget_init", reason, domain, info.ClientIP(), info.UserAgent, info.RequestID))
	initTotal.WithLabelValues("rejected").Inc()
	return InitResult{Error: reason}
}

// JWTSessionResult is the outcome of the standalone validate-then-create
// path.
type JWTSessionResult struct {
	Success        bool
	SessionToken   string
	UserIdentifier string
	UserData       *security.UserData
	Error          string
	RateLimit      *security.RateLimitResult
}

// ValidateJWT validates a widget token on its own and creates a session on
// success. The domain comes from the caller rather than request headers.
func (s *Service) ValidateJWT(ctx context.Context, orgID, userJWT, domain string, info security.RequestInfo) JWTSessionResult {
	ip := info.ClientIP()

	rl := s.limiter.AllowWidgetRequest(orgID, ip)
	if !rl.Allowed {
		s.audit.Record(audit.RateLimitExceeded(orgID, ip, info.UserAgent, info.RequestID, rl.Remaining, rl.ResetTime))
		rateLimitedTotal.Inc()
		return JWTSessionResult{Error: rl.Error, RateLimit: &rl}
	}

	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		if err != tenants.ErrNotFound {
			s.log.Errorw("load security config", "org", orgID, "err", err)
		}
		return JWTSessionResult{Error: "Organization not found"}
	}
	if cfg.JWTSigningSecret == "" {
		return JWTSessionResult{Error: "JWT secret not configured for organization"}
	}

	res := s.jwt.Validate(ctx, userJWT, cfg.JWTSigningSecret, orgID, domain)
	if !res.Valid {
		s.audit.Record(audit.JWTValidation(orgID, "", domain, ip, info.UserAgent, info.RequestID, audit.OutcomeFailure, res.Error))
		jwtValidationTotal.WithLabelValues("failure").Inc()
		return JWTSessionResult{Error: res.Error}
	}
	s.audit.Record(audit.JWTValidation(orgID, res.Claims.Subject, domain, ip, info.UserAgent, info.RequestID, audit.OutcomeSuccess, ""))
	jwtValidationTotal.WithLabelValues("success").Inc()

	token, err := s.sessions.Initialize(ctx, orgID, domain, res.Claims.Subject, cfg.SessionDuration)
	if err != nil {
		s.log.Errorw("create chat session", "org", orgID, "err", err)
		return JWTSessionResult{Error: "Failed to create chat session"}
	}
	return JWTSessionResult{
		Success:        true,
		SessionToken:   token,
		UserIdentifier: res.Claims.Subject,
		UserData:       res.Claims.UserData,
		RateLimit:      &rl,
	}
}

// PublicConfig is the widget-visible slice of a tenant's security config;
// it never exposes the signing secret.
type PublicConfig struct {
	OrganizationID    string   `json:"organization_id"`
	SecurityLevel     string   `json:"security_level"`
	AllowedDomains    []string `json:"allowed_domains"`
	SessionDurationMs int64    `json:"session_duration_ms"`
}

func (s *Service) GetPublicConfig(ctx context.Context, orgID string) (PublicConfig, error) {
	cfg, err := s.orgs.GetSecurityConfig(ctx, orgID)
	if err != nil {
		return PublicConfig{}, err
	}
	domains := cfg.AllowedDomains
	if domains == nil {
		domains = []string{}
	}
	return PublicConfig{
		OrganizationID:    orgID,
		SecurityLevel:     string(cfg.SecurityLevel),
		AllowedDomains:    domains,
		SessionDurationMs: cfg.SessionDuration.Milliseconds(),
	}, nil
}

// ValidateSession resolves an existing session token.
func (s *Service) ValidateSession(ctx context.Context, token string) (session.Validation, error) {
	return s.sessions.Validate(ctx, token)
}

// Cleanup removes expired sessions and returns the deleted count. Invoked
// by the startup scheduler and the manual maintenance endpoint.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.sessions.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infow("expired chat sessions removed", "count", n)
	}
	return n, nil
}
