// Package profiles holds tenant CRM connection configuration and the logic
// that picks exactly one profile for an inbound request.
package profiles

import "strings"

// APIFlavor tags the upstream deployment's filter-query dialect.
type APIFlavor string

const (
	FlavorRest   APIFlavor = "rest"
	FlavorLegacy APIFlavor = "legacy"
)

// OAuthSettings is the token-endpoint configuration for a profile.
type OAuthSettings struct {
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	GrantType    string `yaml:"grant_type"`
}

// Profile is a tenant's CRM connection configuration. Profiles are loaded
// once at bootstrap and immutable afterwards.
type Profile struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	BaseURL      string        `yaml:"base_url"`
	APIFlavor    APIFlavor     `yaml:"api_flavor"`
	HostPatterns []string      `yaml:"host_patterns"`
	OAuth        OAuthSettings `yaml:"oauth"`
}

// MatchesHost reports whether host matches one of the profile's patterns.
// Patterns are either an exact host or a leading-wildcard subdomain pattern
// such as "*.example.com". Comparison is case-insensitive and ignores any
// port on the request host.
func (p *Profile) MatchesHost(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, pattern := range p.HostPatterns {
		if hostMatchesPattern(host, pattern) {
			return true
		}
	}
	return false
}

func hostMatchesPattern(host, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		// "*.example.com" matches any subdomain plus the bare domain.
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	return host == pattern
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	// Strip a port if present, tolerating bracketed IPv6 literals.
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end >= 0 {
			return host[1:end]
		}
		return host
	}
	if idx := strings.LastIndex(host, ":"); idx >= 0 && !strings.Contains(host[idx+1:], ":") {
		return host[:idx]
	}
	return host
}
