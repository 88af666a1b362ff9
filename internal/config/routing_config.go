package config

import "strings"

// RoutingConfig exposes the request-routing feature flags: strict host
// routing, forwarded-host trust, and the trusted-proxy allow-list.
type RoutingConfig interface {
	GetStrictHostRouting() bool
	GetTrustForwardedHost() bool
	GetTrustedProxies() []string
}

type Routing struct{}

var _ RoutingConfig = Routing{}

func (Routing) GetStrictHostRouting() bool {
	return GetEnv("STRICT_HOST_ROUTING", "false") == "true"
}

func (Routing) GetTrustForwardedHost() bool {
	return GetEnv("TRUST_FORWARDED_HOST", "false") == "true"
}

// GetTrustedProxies returns the comma-separated TRUSTED_PROXIES entries.
// Entries may be exact IPs or CIDR ranges, IPv4 or IPv6.
func (Routing) GetTrustedProxies() []string {
	raw := GetEnv("TRUSTED_PROXIES", "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	proxies := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			proxies = append(proxies, trimmed)
		}
	}
	return proxies
}
