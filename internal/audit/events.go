package audit

import "time"

// Event builders carrying the standard shape for each decision type.

func ChatWidgetInit(orgID, userIdentifier, domain, ip, userAgent, requestID, securityLevel, sessionToken string) Event {
	return Event{
		Type:           EventChatWidgetInit,
		OrganizationID: orgID,
		UserIdentifier: userIdentifier,
		Domain:         domain,
		IP:             ip,
		UserAgent:      userAgent,
		RequestID:      requestID,
		Severity:       SeverityLow,
		Outcome:        OutcomeSuccess,
		Details: map[string]any{
			"security_level":      securityLevel,
			"session_token":       truncateToken(sessionToken),
			"has_user_identifier": userIdentifier != "",
		},
	}
}

func JWTValidation(orgID, userIdentifier, domain, ip, userAgent, requestID string, outcome Outcome, errMsg string) Event {
	sev := SeverityLow
	if outcome == OutcomeFailure {
		sev = SeverityMedium
	}
	return Event{
		Type:           EventJWTValidation,
		OrganizationID: orgID,
		UserIdentifier: userIdentifier,
		Domain:         domain,
		IP:             ip,
		UserAgent:      userAgent,
		RequestID:      requestID,
		Severity:       sev,
		Outcome:        outcome,
		Details: map[string]any{
			"error":               errMsg,
			"has_user_identifier": userIdentifier != "",
		},
	}
}

func DomainValidation(orgID, requestDomain, ip, userAgent, requestID string, allowedDomains []string, outcome Outcome) Event {
	sev := SeverityLow
	if outcome == OutcomeFailure {
		sev = SeverityHigh
	}
	return Event{
		Type:           EventDomainValidation,
		OrganizationID: orgID,
		Domain:         requestDomain,
		IP:             ip,
		UserAgent:      userAgent,
		RequestID:      requestID,
		Severity:       sev,
		Outcome:        outcome,
		Details: map[string]any{
			"request_domain":  requestDomain,
			"allowed_domains": allowedDomains,
			"domain_count":    len(allowedDomains),
		},
	}
}

func RateLimitExceeded(orgID, ip, userAgent, requestID string, remaining int, resetTime time.Time) Event {
	return Event{
		Type:           EventRateLimitExceeded,
		OrganizationID: orgID,
		IP:             ip,
		UserAgent:      userAgent,
		RequestID:      requestID,
		Severity:       SeverityMedium,
		Outcome:        OutcomeWarning,
		Details: map[string]any{
			"remaining":  remaining,
			"reset_time": resetTime.UTC().Format(time.RFC3339),
		},
	}
}

func UnauthorizedAccess(orgID, attemptedAction, reason, domain, ip, userAgent, requestID string) Event {
	if orgID == "" {
		orgID = "unknown"
	}
	return Event{
		Type:           EventUnauthorizedAccess,
		OrganizationID: orgID,
		Domain:         domain,
		IP:             ip,
		UserAgent:      userAgent,
		RequestID:      requestID,
		Severity:       SeverityHigh,
		Outcome:        OutcomeFailure,
		Details: map[string]any{
			"attempted_action": attemptedAction,
			"reason":           reason,
		},
	}
}

func PolicyChange(orgID, changeType, adminUserID string, changes map[string]any) Event {
	return Event{
		Type:           EventSecurityPolicyChange,
		OrganizationID: orgID,
		UserIdentifier: adminUserID,
		Severity:       SeverityMedium,
		Outcome:        OutcomeSuccess,
		Details: map[string]any{
			"change_type":    changeType,
			"changes":        changes,
			"has_admin_user": adminUserID != "",
		},
	}
}

// truncateToken keeps a short prefix so operators can correlate events
// without the log becoming a credential store.
func truncateToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
