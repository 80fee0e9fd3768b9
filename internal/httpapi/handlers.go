package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chatguard/internal/security"
	"chatguard/internal/widget"
	"chatguard/pkg/tenants"
)

func (a *App) initChatWidget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID string `json:"organization_id"`
		UserJWT        string `json:"user_jwt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrganizationID == "" {
		writeJSON(w, map[string]any{"success": false, "error": "Organization ID is required"}, http.StatusBadRequest)
		return
	}

	res := a.svc.InitializeWidget(r.Context(), body.OrganizationID, security.InfoFromRequest(r), body.UserJWT)
	if !res.Success {
		writeJSON(w, map[string]any{"success": false, "error": res.Error}, initStatus(res))
		return
	}
	writeJSON(w, map[string]any{
		"success":         true,
		"session_token":   res.SessionToken,
		"user_identifier": nullIfEmpty(res.UserIdentifier),
		"message":         "Chat widget initialized successfully",
		"rate_limit_info": rateLimitInfo(res.RateLimit),
	}, http.StatusOK)
}

func initStatus(res widget.InitResult) int {
	switch {
	case res.RateLimit != nil && !res.RateLimit.Allowed:
		return http.StatusTooManyRequests
	case res.Error == "Organization not found":
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

func (a *App) getConfig(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	cfg, err := a.svc.GetPublicConfig(r.Context(), orgID)
	if err != nil {
		if err == tenants.ErrNotFound {
			writeJSON(w, map[string]any{"error": "Organization not found"}, http.StatusNotFound)
			return
		}
		a.log.Errorw("get public config", "org", orgID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, cfg, http.StatusOK)
}

func (a *App) validateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionToken == "" {
		writeJSON(w, map[string]any{"error": "Session token is required"}, http.StatusBadRequest)
		return
	}
	v, err := a.svc.ValidateSession(r.Context(), body.SessionToken)
	if err != nil {
		a.log.Errorw("validate session", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"valid":           v.Valid,
		"organization_id": nullIfEmpty(v.OrganizationID),
		"user_identifier": nullIfEmpty(v.UserIdentifier),
	}, http.StatusOK)
}

func (a *App) validateJWT(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID string `json:"organization_id"`
		UserJWT        string `json:"user_jwt"`
		Domain         string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrganizationID == "" || body.UserJWT == "" {
		writeJSON(w, map[string]any{"success": false, "error": "Organization ID and JWT token are required"}, http.StatusBadRequest)
		return
	}

	res := a.svc.ValidateJWT(r.Context(), body.OrganizationID, body.UserJWT, body.Domain, security.InfoFromRequest(r))
	if !res.Success {
		status := http.StatusForbidden
		switch {
		case res.RateLimit != nil && !res.RateLimit.Allowed:
			status = http.StatusTooManyRequests
		case res.Error == "Organization not found":
			status = http.StatusNotFound
		}
		writeJSON(w, map[string]any{"success": false, "error": res.Error}, status)
		return
	}
	writeJSON(w, map[string]any{
		"success":         true,
		"session_token":   res.SessionToken,
		"user_identifier": res.UserIdentifier,
		"user_data":       res.UserData,
		"message":         "JWT validated and session created successfully",
		"rate_limit_info": rateLimitInfo(res.RateLimit),
	}, http.StatusOK)
}

func (a *App) getJWTDocs(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	docs := security.DocsFor(orgID)
	writeJSON(w, map[string]any{
		"algorithm":       docs.Algorithm,
		"required_claims": docs.RequiredClaims,
		"optional_claims": docs.OptionalClaims,
		"example_payload": docs.ExamplePayload,
		"instructions": map[string]any{
			"overview": "Generate JWTs server-side using your organization's secret",
			"steps": []string{
				"Include required claims: iss, aud, sub, exp, org_id",
				"Sign with HS256 algorithm using your JWT secret",
				"Set expiration time (recommended: 5-15 minutes)",
				"Pass JWT to widget initialization",
			},
			"security": []string{
				"Never expose JWT secret in client-side code",
				"Generate JWTs server-side only",
				"Use short expiration times",
				"Validate issuer matches request domain",
			},
		},
	}, http.StatusOK)
}

func (a *App) putSecurityLevel(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var body struct {
		SecurityLevel string `json:"security_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	err := a.svc.UpdateSecurityLevel(r.Context(), orgID, tenants.SecurityLevel(body.SecurityLevel), adminUser(r))
	if err != nil {
		a.writeAdminError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"success":        true,
		"message":        "Security level updated to " + body.SecurityLevel,
		"security_level": body.SecurityLevel,
	}, http.StatusOK)
}

func (a *App) addDomain(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var body struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}
	if err := a.svc.AddAllowedDomain(r.Context(), orgID, body.Domain, adminUser(r)); err != nil {
		a.writeAdminError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"message": "Domain " + body.Domain + " added successfully",
		"domain":  body.Domain,
	}, http.StatusOK)
}

func (a *App) removeDomain(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var body struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Domain == "" {
		http.Error(w, "domain is required", http.StatusBadRequest)
		return
	}
	if err := a.svc.RemoveAllowedDomain(r.Context(), orgID, body.Domain, adminUser(r)); err != nil {
		a.writeAdminError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"message": "Domain " + body.Domain + " removed successfully",
		"domain":  body.Domain,
	}, http.StatusOK)
}

func (a *App) rotateSecret(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	secret, err := a.svc.RotateJWTSecret(r.Context(), orgID, adminUser(r))
	if err != nil {
		a.writeAdminError(w, err)
		return
	}
	// only a preview leaves the API
	preview := secret
	if len(preview) > 8 {
		preview = preview[:8] + "..."
	}
	writeJSON(w, map[string]any{
		"success":        true,
		"message":        "JWT secret generated successfully",
		"secret_preview": preview,
	}, http.StatusOK)
}

func (a *App) createSampleJWT(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var body struct {
		UserIdentifier string         `json:"user_identifier"`
		Domain         string         `json:"domain"`
		UserData       map[string]any `json:"user_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserIdentifier == "" || body.Domain == "" {
		http.Error(w, "user_identifier and domain are required", http.StatusBadRequest)
		return
	}
	tok, err := a.svc.CreateSampleJWT(r.Context(), orgID, body.UserIdentifier, body.Domain, body.UserData)
	if err != nil {
		a.writeAdminError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"success":    true,
		"jwt":        tok,
		"expires_in": "15 minutes",
	}, http.StatusOK)
}

func (a *App) cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Cleanup(r.Context())
	if err != nil {
		a.log.Errorw("manual cleanup", "err", err)
		writeJSON(w, map[string]any{"success": false, "error": err.Error()}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "deleted": n}, http.StatusOK)
}

func (a *App) writeAdminError(w http.ResponseWriter, err error) {
	switch err {
	case tenants.ErrNotFound:
		writeJSON(w, map[string]any{"success": false, "error": "Organization not found"}, http.StatusNotFound)
	case widget.ErrDomainExists, widget.ErrDomainMissing, widget.ErrInvalidLevel, widget.ErrNoSecret:
		writeJSON(w, map[string]any{"success": false, "error": err.Error()}, http.StatusBadRequest)
	default:
		a.log.Errorw("admin mutation", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func rateLimitInfo(rl *security.RateLimitResult) map[string]any {
	if rl == nil {
		return nil
	}
	return map[string]any{
		"remaining":  rl.Remaining,
		"reset_time": rl.ResetTime.UTC().Format(time.RFC3339),
	}
}
