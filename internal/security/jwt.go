package security

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// WidgetAudience is the fixed aud claim every widget token must carry.
const WidgetAudience = "chat-widget"

const (
	// maxTokenLifetime caps exp regardless of what the issuer claims,
	// bounding the blast radius of a leaked long-lived token.
	maxTokenLifetime = 15 * time.Minute
	// maxIssuedAtAge is the accepted clock skew for iat.
	maxIssuedAtAge = 300 * time.Second
)

// UserData is the optional free-form identity block issuers may attach.
type UserData struct {
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// WidgetClaims is the validated, typed payload of a chat-widget token.
type WidgetClaims struct {
	Subject   string
	Issuer    string
	OrgID     string
	ExpiresAt time.Time
	JTI       string
	UserData  *UserData
}

// JWTResult mirrors the validator contract: expected rejections are carried
// as Error, never as a Go error.
type JWTResult struct {
	Valid  bool
	Claims *WidgetClaims
	Error  string
}

// JWTValidator verifies tenant-scoped widget tokens. Checks run in a fixed
// order and the first failure wins, each with a distinct message.
type JWTValidator struct {
	replay ReplayStore
	now    func() time.Time
}

func NewJWTValidator(replay ReplayStore) *JWTValidator {
	return &JWTValidator{replay: replay, now: time.Now}
}

func (v *JWTValidator) Validate(ctx context.Context, token, secret, orgID, domain string) JWTResult {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, []byte(secret)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return JWTResult{Error: err.Error()}
	}

	if tok.Subject() == "" {
		return JWTResult{Error: "Missing user identifier (sub)"}
	}
	if tok.Issuer() == "" {
		return JWTResult{Error: "Missing issuer (iss)"}
	}
	if !hasAudience(tok.Audience(), WidgetAudience) {
		return JWTResult{Error: "Invalid or missing audience (aud)"}
	}
	claimedOrg, _ := stringClaim(tok, "org_id")
	if claimedOrg == "" {
		return JWTResult{Error: "Missing organization ID (org_id)"}
	}
	if claimedOrg != orgID {
		return JWTResult{Error: "Organization ID mismatch"}
	}

	now := v.now()
	if _, ok := tok.Get(jwt.ExpirationKey); !ok {
		return JWTResult{Error: "Missing expiration time (exp)"}
	}
	exp := tok.Expiration()
	if exp.Unix() < now.Unix() {
		return JWTResult{Error: "Token expired"}
	}
	if exp.Unix() > now.Add(maxTokenLifetime).Unix() {
		return JWTResult{Error: "Token expiration time too far in future (max 15 minutes)"}
	}

	if _, ok := tok.Get(jwt.IssuedAtKey); ok {
		iat := tok.IssuedAt()
		if iat.Unix() > now.Unix() {
			return JWTResult{Error: "Token issued in the future (iat)"}
		}
		if now.Unix()-iat.Unix() > int64(maxIssuedAtAge/time.Second) {
			return JWTResult{Error: "Token issued too long ago (iat)"}
		}
	}

	if _, ok := tok.Get(jwt.NotBeforeKey); ok {
		if tok.NotBefore().Unix() > now.Unix() {
			return JWTResult{Error: "Token not yet valid (nbf)"}
		}
	}

	if domain != "" {
		issuerDomain := NormalizeDomain(tok.Issuer())
		requestDomain := NormalizeDomain(domain)
		if issuerDomain != requestDomain {
			return JWTResult{Error: fmt.Sprintf("JWT issuer domain '%s' does not match request domain '%s'", issuerDomain, requestDomain)}
		}
	}

	if jti := tok.JwtID(); jti != "" {
		used, err := v.replay.MarkIfUsed(ctx, jti, exp.Sub(now))
		if err != nil {
			return JWTResult{Error: err.Error()}
		}
		if used {
			return JWTResult{Error: "Token has already been used (replay attack prevented)"}
		}
	}

	claims := &WidgetClaims{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		OrgID:     claimedOrg,
		ExpiresAt: exp,
		JTI:       tok.JwtID(),
		UserData:  userDataClaim(tok),
	}
	return JWTResult{Valid: true, Claims: claims}
}

func hasAudience(auds []string, want string) bool {
	for _, a := range auds {
		if a == want {
			return true
		}
	}
	return false
}

func stringClaim(tok jwt.Token, name string) (string, bool) {
	v, ok := tok.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func userDataClaim(tok jwt.Token) *UserData {
	raw, ok := tok.Get("user_data")
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	ud := &UserData{}
	if s, ok := m["name"].(string); ok {
		ud.Name = s
	}
	if s, ok := m["email"].(string); ok {
		ud.Email = s
	}
	if cf, ok := m["custom_fields"].(map[string]any); ok {
		ud.CustomFields = cf
	}
	return ud
}
