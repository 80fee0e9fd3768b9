package widget

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatguard/internal/audit"
	"chatguard/internal/security"
	"chatguard/internal/session"
	"chatguard/pkg/logger"
	"chatguard/pkg/tenants"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(ev audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureRecorder) byType(t audit.EventType) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	svc  *Service
	orgs tenants.Provider
	rec  *captureRecorder
}

func newFixture(t *testing.T, cfgs map[string]tenants.SecurityConfig) *fixture {
	t.Helper()
	log := logger.Nop()
	orgs := tenants.NewMemoryProvider(log)
	for id, cfg := range cfgs {
		require.NoError(t, orgs.UpsertSecurityConfig(context.Background(), id, cfg))
	}
	rec := &captureRecorder{}
	svc := NewService(
		log,
		orgs,
		session.NewManager(session.NewMemoryStore()),
		security.NewJWTValidator(security.NewMemoryReplayStore()),
		security.NewLimiter(),
		rec,
	)
	return &fixture{svc: svc, orgs: orgs, rec: rec}
}

const (
	orgBasic  = "org-basic"
	orgLocked = "org-locked"
	orgJWT    = "org-jwt"
	jwtSecret = "super-secret-signing-key"
)

func stdConfigs() map[string]tenants.SecurityConfig {
	return map[string]tenants.SecurityConfig{
		orgBasic: {
			SecurityLevel:   tenants.SecurityLevelBasic,
			SessionDuration: tenants.DefaultSessionDuration,
		},
		orgLocked: {
			SecurityLevel:   tenants.SecurityLevelBasic,
			AllowedDomains:  []string{"example.com", "*.app.example.com"},
			SessionDuration: tenants.DefaultSessionDuration,
		},
		orgJWT: {
			SecurityLevel:    tenants.SecurityLevelJWTRequired,
			AllowedDomains:   []string{"example.com"},
			JWTSigningSecret: jwtSecret,
			SessionDuration:  tenants.DefaultSessionDuration,
		},
	}
}

func originInfo(origin string) security.RequestInfo {
	return security.RequestInfo{
		Origin:       origin,
		ForwardedFor: "203.0.113.7",
		UserAgent:    "widget-test",
		RequestID:    "req-1",
	}
}

func TestInitializeWidgetBasicAnonymous(t *testing.T) {
	f := newFixture(t, stdConfigs())

	res := f.svc.InitializeWidget(context.Background(), orgBasic, originInfo("https://anything.example.org"), "")
	require.True(t, res.Success, "error: %s", res.Error)
	require.NotEmpty(t, res.SessionToken)
	require.Empty(t, res.UserIdentifier)
	require.NotNil(t, res.RateLimit)
	require.True(t, res.RateLimit.Allowed)

	require.Len(t, f.rec.byType(audit.EventChatWidgetInit), 1)

	v, err := f.svc.ValidateSession(context.Background(), res.SessionToken)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, orgBasic, v.OrganizationID)
}

func TestInitializeWidgetAllowedDomain(t *testing.T) {
	f := newFixture(t, stdConfigs())

	for _, origin := range []string{"https://example.com", "https://sub.app.example.com:8443"} {
		res := f.svc.InitializeWidget(context.Background(), orgLocked, originInfo(origin), "")
		require.True(t, res.Success, "origin %s: %s", origin, res.Error)
	}

	checks := f.rec.byType(audit.EventDomainValidation)
	require.Len(t, checks, 2)
	for _, ev := range checks {
		require.Equal(t, audit.OutcomeSuccess, ev.Outcome)
	}
}

func TestInitializeWidgetRejectsForeignDomain(t *testing.T) {
	f := newFixture(t, stdConfigs())

	res := f.svc.InitializeWidget(context.Background(), orgLocked, originInfo("https://evil.com"), "")
	require.False(t, res.Success)
	require.Equal(t, "Domain 'evil.com' is not authorized for this widget", res.Error)
	require.Empty(t, res.SessionToken)

	unauthorized := f.rec.byType(audit.EventUnauthorizedAccess)
	require.Len(t, unauthorized, 1, "exactly one unauthorized_access event per rejection")
	require.Equal(t, orgLocked, unauthorized[0].OrganizationID)
	require.Equal(t, "evil.com", unauthorized[0].Domain)

	checks := f.rec.byType(audit.EventDomainValidation)
	require.Len(t, checks, 1)
	require.Equal(t, audit.OutcomeFailure, checks[0].Outcome)
	require.Equal(t, "evil.com", checks[0].Details["request_domain"])
}

func TestInitializeWidgetRejectsMissingOriginWhenLocked(t *testing.T) {
	f := newFixture(t, stdConfigs())

	info := security.RequestInfo{ForwardedFor: "203.0.113.7"}
	res := f.svc.InitializeWidget(context.Background(), orgLocked, info, "")
	require.False(t, res.Success)
	require.Equal(t, "Unable to determine request domain", res.Error)
}

func TestInitializeWidgetUnknownOrg(t *testing.T) {
	f := newFixture(t, stdConfigs())

	res := f.svc.InitializeWidget(context.Background(), "org-nope", originInfo("https://example.com"), "")
	require.False(t, res.Success)
	require.Equal(t, "Organization not found", res.Error)
	require.Len(t, f.rec.byType(audit.EventUnauthorizedAccess), 1)
}

func TestInitializeWidgetJWTRequired(t *testing.T) {
	f := newFixture(t, stdConfigs())

	// no token at all
	res := f.svc.InitializeWidget(context.Background(), orgJWT, originInfo("https://example.com"), "")
	require.False(t, res.Success)
	require.Equal(t, "JWT authentication required for this organization", res.Error)

	// valid token issued for the request domain
	token, err := security.SignSampleToken(jwtSecret, orgJWT, "user-42", "https://example.com", nil)
	require.NoError(t, err)
	res = f.svc.InitializeWidget(context.Background(), orgJWT, originInfo("https://example.com"), token)
	require.True(t, res.Success, "error: %s", res.Error)
	require.Equal(t, "user-42", res.UserIdentifier)

	jwtEvents := f.rec.byType(audit.EventJWTValidation)
	require.Len(t, jwtEvents, 1)
	require.Equal(t, audit.OutcomeSuccess, jwtEvents[0].Outcome)
}

func TestInitializeWidgetJWTFailureAudited(t *testing.T) {
	f := newFixture(t, stdConfigs())

	token, err := security.SignSampleToken("wrong-secret", orgJWT, "user-42", "https://example.com", nil)
	require.NoError(t, err)

	res := f.svc.InitializeWidget(context.Background(), orgJWT, originInfo("https://example.com"), token)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)

	jwtEvents := f.rec.byType(audit.EventJWTValidation)
	require.Len(t, jwtEvents, 1)
	require.Equal(t, audit.OutcomeFailure, jwtEvents[0].Outcome)
}

func TestInitializeWidgetOptionalJWTOnBasicOrg(t *testing.T) {
	cfgs := stdConfigs()
	cfg := cfgs[orgBasic]
	cfg.JWTSigningSecret = jwtSecret
	cfgs[orgBasic] = cfg
	f := newFixture(t, cfgs)

	// basic orgs accept anonymous traffic, but a supplied JWT is still verified
	token, err := security.SignSampleToken(jwtSecret, orgBasic, "user-9", "https://example.com", nil)
	require.NoError(t, err)
	res := f.svc.InitializeWidget(context.Background(), orgBasic, originInfo("https://example.com"), token)
	require.True(t, res.Success, "error: %s", res.Error)
	require.Equal(t, "user-9", res.UserIdentifier)

	res = f.svc.InitializeWidget(context.Background(), orgBasic, originInfo("https://example.com"), "garbage-token")
	require.False(t, res.Success)
}

func TestInitializeWidgetJWTSecretMissing(t *testing.T) {
	cfgs := stdConfigs()
	cfg := cfgs[orgJWT]
	cfg.JWTSigningSecret = ""
	cfgs[orgJWT] = cfg
	f := newFixture(t, cfgs)

	token, err := security.SignSampleToken(jwtSecret, orgJWT, "user-42", "https://example.com", nil)
	require.NoError(t, err)
	res := f.svc.InitializeWidget(context.Background(), orgJWT, originInfo("https://example.com"), token)
	require.False(t, res.Success)
	require.Equal(t, "JWT secret not configured for organization", res.Error)
}

func TestInitializeWidgetRateLimited(t *testing.T) {
	f := newFixture(t, stdConfigs())
	info := originInfo("https://example.com")

	for i := 0; i < security.IPMaxPerWindow; i++ {
		res := f.svc.InitializeWidget(context.Background(), orgBasic, info, "")
		require.True(t, res.Success, "request %d: %s", i+1, res.Error)
	}

	res := f.svc.InitializeWidget(context.Background(), orgBasic, info, "")
	require.False(t, res.Success)
	require.Equal(t, "Rate limit exceeded", res.Error)
	require.NotNil(t, res.RateLimit)
	require.False(t, res.RateLimit.Allowed)
	require.Equal(t, 0, res.RateLimit.Remaining)

	require.Len(t, f.rec.byType(audit.EventRateLimitExceeded), 1)
}

func TestValidateJWTCreatesSession(t *testing.T) {
	f := newFixture(t, stdConfigs())

	token, err := security.SignSampleToken(jwtSecret, orgJWT, "user-42", "https://example.com", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	res := f.svc.ValidateJWT(context.Background(), orgJWT, token, "example.com", originInfo(""))
	require.True(t, res.Success, "error: %s", res.Error)
	require.Equal(t, "user-42", res.UserIdentifier)
	require.NotNil(t, res.UserData)
	require.Equal(t, "Ada", res.UserData.Name)

	v, err := f.svc.ValidateSession(context.Background(), res.SessionToken)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, "user-42", v.UserIdentifier)
}

func TestValidateJWTTokenWithoutJTIIsReusable(t *testing.T) {
	f := newFixture(t, stdConfigs())

	token, err := security.SignSampleToken(jwtSecret, orgJWT, "user-42", "https://example.com", nil)
	require.NoError(t, err)

	res := f.svc.ValidateJWT(context.Background(), orgJWT, token, "example.com", originInfo(""))
	require.True(t, res.Success, "error: %s", res.Error)

	res = f.svc.ValidateJWT(context.Background(), orgJWT, token, "example.com", originInfo(""))
	require.True(t, res.Success, "error: %s", res.Error)
}

func TestGetPublicConfigOmitsSecret(t *testing.T) {
	f := newFixture(t, stdConfigs())

	cfg, err := f.svc.GetPublicConfig(context.Background(), orgJWT)
	require.NoError(t, err)
	require.Equal(t, orgJWT, cfg.OrganizationID)
	require.Equal(t, "jwt_required", cfg.SecurityLevel)
	require.Equal(t, []string{"example.com"}, cfg.AllowedDomains)
	require.EqualValues(t, tenants.DefaultSessionDuration.Milliseconds(), cfg.SessionDurationMs)

	empty, err := f.svc.GetPublicConfig(context.Background(), orgBasic)
	require.NoError(t, err)
	require.NotNil(t, empty.AllowedDomains)
	require.Empty(t, empty.AllowedDomains)
}

func TestCleanupReportsSweptSessions(t *testing.T) {
	f := newFixture(t, stdConfigs())
	ctx := context.Background()

	store := session.NewMemoryStore()
	mgr := session.NewManager(store)
	f.svc.sessions = mgr

	require.NoError(t, store.Insert(ctx, session.Session{
		ID:             "s-1",
		OrganizationID: orgBasic,
		Token:          "expired-token",
		ExpiresAt:      time.Now().Add(-time.Minute),
		CreatedAt:      time.Now().Add(-time.Hour),
	}))

	n, err := f.svc.Cleanup(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestAdminSecurityLevel(t *testing.T) {
	f := newFixture(t, stdConfigs())
	ctx := context.Background()

	require.ErrorIs(t, f.svc.UpdateSecurityLevel(ctx, orgBasic, "paranoid", "admin-1"), ErrInvalidLevel)

	require.NoError(t, f.svc.UpdateSecurityLevel(ctx, orgBasic, tenants.SecurityLevelJWTRequired, "admin-1"))
	cfg, err := f.orgs.GetSecurityConfig(ctx, orgBasic)
	require.NoError(t, err)
	require.Equal(t, tenants.SecurityLevelJWTRequired, cfg.SecurityLevel)

	changes := f.rec.byType(audit.EventSecurityPolicyChange)
	require.Len(t, changes, 1)
	require.Equal(t, "security_level_update", changes[0].Details["change_type"])
}

func TestAdminDomainList(t *testing.T) {
	f := newFixture(t, stdConfigs())
	ctx := context.Background()

	require.NoError(t, f.svc.AddAllowedDomain(ctx, orgLocked, "new.example.net", "admin-1"))
	require.ErrorIs(t, f.svc.AddAllowedDomain(ctx, orgLocked, "new.example.net", "admin-1"), ErrDomainExists)

	cfg, err := f.orgs.GetSecurityConfig(ctx, orgLocked)
	require.NoError(t, err)
	require.Contains(t, cfg.AllowedDomains, "new.example.net")

	require.NoError(t, f.svc.RemoveAllowedDomain(ctx, orgLocked, "new.example.net", "admin-1"))
	require.ErrorIs(t, f.svc.RemoveAllowedDomain(ctx, orgLocked, "new.example.net", "admin-1"), ErrDomainMissing)

	cfg, err = f.orgs.GetSecurityConfig(ctx, orgLocked)
	require.NoError(t, err)
	require.NotContains(t, cfg.AllowedDomains, "new.example.net")

	require.Len(t, f.rec.byType(audit.EventSecurityPolicyChange), 2)
}

func TestAdminRotateJWTSecret(t *testing.T) {
	f := newFixture(t, stdConfigs())
	ctx := context.Background()

	secret, err := f.svc.RotateJWTSecret(ctx, orgJWT, "admin-1")
	require.NoError(t, err)
	require.Len(t, secret, 64)
	require.NotEqual(t, jwtSecret, secret)

	cfg, err := f.orgs.GetSecurityConfig(ctx, orgJWT)
	require.NoError(t, err)
	require.Equal(t, secret, cfg.JWTSigningSecret)

	// tokens signed with the old secret stop validating
	token, err := security.SignSampleToken(jwtSecret, orgJWT, "user-42", "https://example.com", nil)
	require.NoError(t, err)
	res := f.svc.ValidateJWT(ctx, orgJWT, token, "example.com", originInfo(""))
	require.False(t, res.Success)
}

func TestAdminCreateSampleJWT(t *testing.T) {
	f := newFixture(t, stdConfigs())
	ctx := context.Background()

	token, err := f.svc.CreateSampleJWT(ctx, orgJWT, "tester", "https://example.com", nil)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(token, ".")))

	res := f.svc.ValidateJWT(ctx, orgJWT, token, "example.com", originInfo(""))
	require.True(t, res.Success, "error: %s", res.Error)
	require.Equal(t, "tester", res.UserIdentifier)

	_, err = f.svc.CreateSampleJWT(ctx, orgBasic, "tester", "https://example.com", nil)
	require.ErrorIs(t, err, ErrNoSecret)
}
