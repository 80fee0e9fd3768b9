package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"example.com":              "example.com",
		"https://example.com":      "example.com",
		"http://example.com/":      "example.com",
		"Example.COM":              "example.com",
		"example.com:3000":         "example.com",
		"https://app.example.com:8443/": "app.example.com",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeDomain(in), "input %q", in)
	}
}

func TestMatchesAllowedDomainsExact(t *testing.T) {
	for _, d := range []string{"example.com", "app.example.com", "localhost"} {
		require.True(t, MatchesAllowedDomains(d, []string{d}), "reflexive match for %q", d)
	}
	require.True(t, MatchesAllowedDomains("https://example.com", []string{"example.com"}))
	require.False(t, MatchesAllowedDomains("evil.com", []string{"example.com"}))
}

func TestMatchesAllowedDomainsWildcard(t *testing.T) {
	allowed := []string{"*.example.com"}
	require.True(t, MatchesAllowedDomains("app.example.com", allowed))
	require.True(t, MatchesAllowedDomains("deep.nested.example.com", allowed))
	require.True(t, MatchesAllowedDomains("example.com", allowed), "wildcard matches the base domain itself")
	require.False(t, MatchesAllowedDomains("evil.com", allowed))
	require.False(t, MatchesAllowedDomains("notexample.com", allowed), "suffix must align on a label boundary")
}

func TestMatchesAllowedDomainsEmptyListIsOpen(t *testing.T) {
	for _, d := range []string{"example.com", "evil.com", "", "anything.at.all"} {
		require.True(t, MatchesAllowedDomains(d, nil))
		require.True(t, MatchesAllowedDomains(d, []string{}))
	}
}

func TestRequestInfoDomain(t *testing.T) {
	ri := RequestInfo{Origin: "https://app.example.com:3000"}
	d, ok := ri.Domain()
	require.True(t, ok)
	require.Equal(t, "app.example.com", d)

	ri = RequestInfo{Referer: "https://example.com/some/page?q=1"}
	d, ok = ri.Domain()
	require.True(t, ok)
	require.Equal(t, "example.com", d)

	// Origin wins over Referer
	ri = RequestInfo{Origin: "https://a.com", Referer: "https://b.com"}
	d, _ = ri.Domain()
	require.Equal(t, "a.com", d)

	_, ok = RequestInfo{}.Domain()
	require.False(t, ok)
}

func TestRequestInfoClientIP(t *testing.T) {
	require.Equal(t, "1.2.3.4", RequestInfo{ForwardedFor: "1.2.3.4, 5.6.7.8"}.ClientIP())
	require.Equal(t, "9.9.9.9", RequestInfo{RealIP: "9.9.9.9"}.ClientIP())
	require.Equal(t, "1.2.3.4", RequestInfo{ForwardedFor: " 1.2.3.4 ", RealIP: "9.9.9.9"}.ClientIP())
	require.Equal(t, "unknown", RequestInfo{}.ClientIP())
}
