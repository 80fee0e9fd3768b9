package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// GenerateSecret returns a fresh 256-bit signing secret, hex-encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignSampleToken issues a short-lived widget token the way a customer's
// backend would. Used by the admin sample-JWT endpoint for integration
// testing.
func SignSampleToken(secret, orgID, userIdentifier, domain string, userData map[string]any) (string, error) {
	now := time.Now()
	b := jwt.NewBuilder().
		Issuer(domain).
		Audience([]string{WidgetAudience}).
		Subject(userIdentifier).
		IssuedAt(now).
		Expiration(now.Add(maxTokenLifetime)).
		Claim("org_id", orgID)
	if userData != nil {
		b = b.Claim("user_data", userData)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// IntegrationDocs describes how customers mint widget tokens.
type IntegrationDocs struct {
	Algorithm      string         `json:"algorithm"`
	RequiredClaims []string       `json:"required_claims"`
	OptionalClaims []string       `json:"optional_claims"`
	ExamplePayload map[string]any `json:"example_payload"`
}

// DocsFor builds the public JWT documentation for one organization.
func DocsFor(orgID string) IntegrationDocs {
	now := time.Now().Unix()
	return IntegrationDocs{
		Algorithm:      "HS256",
		RequiredClaims: []string{"iss", "aud", "sub", "exp", "org_id"},
		OptionalClaims: []string{"iat", "nbf", "jti", "user_data"},
		ExamplePayload: map[string]any{
			"iss":    "https://your-domain.com",
			"aud":    WidgetAudience,
			"sub":    "customer-user-123",
			"exp":    now + 900,
			"iat":    now,
			"org_id": orgID,
			"user_data": map[string]any{
				"name":  "John Doe",
				"email": "john@your-domain.com",
				"custom_fields": map[string]any{
					"department": "support",
					"tier":       "premium",
				},
			},
		},
	}
}
