package profiles

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// ResolutionError is returned whenever a request cannot be mapped to
// exactly one profile.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("profile resolution failed: %s", e.Reason)
}

// RequestMeta is the slice of an inbound request the resolver needs.
type RequestMeta struct {
	Host           string // Host header
	ForwardedHost  string // X-Forwarded-Host header, may be empty
	PeerAddr       string // immediate peer, host or host:port
	ExplicitID     string // profile id from query parameter or header
	ExplicitSource string // where the explicit id came from, for logging
}

// ResolverOptions carries the routing feature flags.
type ResolverOptions struct {
	StrictHostRouting  bool
	TrustForwardedHost bool
	TrustedProxies     []string
}

// Resolver determines which profile governs a request.
type Resolver struct {
	registry *Registry
	opts     ResolverOptions
	trusted  []trustedEntry
	logger   zerolog.Logger
}

type trustedEntry struct {
	ip     net.IP
	prefix *net.IPNet
}

// NewResolver parses the trusted-proxy allow-list up front. Invalid entries
// are skipped with a log, never fatal.
func NewResolver(registry *Registry, opts ResolverOptions, logger zerolog.Logger) *Resolver {
	r := &Resolver{
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "profile-resolver").Logger(),
	}
	for _, raw := range opts.TrustedProxies {
		entry, err := parseTrustedEntry(raw)
		if err != nil {
			r.logger.Warn().Str("entry", raw).Msg("skipping invalid trusted proxy entry")
			continue
		}
		r.trusted = append(r.trusted, entry)
	}
	return r
}

// Resolve returns exactly one profile for the request or a ResolutionError.
func (r *Resolver) Resolve(meta RequestMeta) (*Profile, error) {
	host := r.effectiveHost(meta)

	// A host match is authoritative. A disagreeing explicit profile id is
	// logged but overridden, never an error.
	if profile, ok := r.registry.MatchHost(host); ok {
		if meta.ExplicitID != "" && meta.ExplicitID != profile.ID {
			r.logger.Warn().
				Str("host", host).
				Str("hostProfile", profile.ID).
				Str("requestedProfile", meta.ExplicitID).
				Str("requestedVia", meta.ExplicitSource).
				Msg("explicit profile id overridden by host match")
		}
		return profile, nil
	}

	if r.opts.StrictHostRouting || r.registry.HasHostPatterns() {
		return nil, &ResolutionError{Reason: fmt.Sprintf("no profile matches host %q", host)}
	}

	if meta.ExplicitID != "" {
		profile, ok := r.registry.Get(meta.ExplicitID)
		if !ok {
			return nil, &ResolutionError{Reason: fmt.Sprintf("unknown profile id %q", meta.ExplicitID)}
		}
		return profile, nil
	}

	if all := r.registry.All(); len(all) == 1 {
		return all[0], nil
	}

	return nil, &ResolutionError{Reason: "no profile selected and more than one is registered"}
}

// effectiveHost applies the forwarded-host override when trust is enabled
// and the immediate peer is in the allow-list.
func (r *Resolver) effectiveHost(meta RequestMeta) string {
	host := meta.Host
	if meta.ForwardedHost == "" || !r.opts.TrustForwardedHost {
		return host
	}
	peer := peerIP(meta.PeerAddr)
	if peer == nil {
		r.logger.Warn().Str("peer", meta.PeerAddr).Msg("ignoring forwarded host: unparseable peer address")
		return host
	}
	if !r.peerTrusted(peer) {
		r.logger.Warn().Str("peer", peer.String()).Msg("ignoring forwarded host: peer not in trusted proxy list")
		return host
	}
	forwarded := strings.TrimSpace(meta.ForwardedHost)
	// X-Forwarded-Host may carry a chain, the first entry is the client-facing host.
	if idx := strings.Index(forwarded, ","); idx >= 0 {
		forwarded = strings.TrimSpace(forwarded[:idx])
	}
	if forwarded == "" {
		return host
	}
	return forwarded
}

func (r *Resolver) peerTrusted(peer net.IP) bool {
	for _, entry := range r.trusted {
		if entry.prefix != nil {
			if entry.prefix.Contains(peer) {
				return true
			}
			continue
		}
		if entry.ip.Equal(peer) {
			return true
		}
	}
	return false
}

func parseTrustedEntry(raw string) (trustedEntry, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		_, prefix, err := net.ParseCIDR(raw)
		if err != nil {
			return trustedEntry{}, err
		}
		return trustedEntry{prefix: prefix}, nil
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return trustedEntry{}, fmt.Errorf("not an IP address: %q", raw)
	}
	return trustedEntry{ip: ip}, nil
}

func peerIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return net.ParseIP(strings.TrimSpace(addr))
}
