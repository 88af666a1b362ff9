package profiles_test

import (
	"bytes"
	"testing"

	"github.com/inboxcrm/connector/profiles"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, list []*profiles.Profile, opts profiles.ResolverOptions) *profiles.Resolver {
	t.Helper()
	registry, err := profiles.NewRegistry(list)
	require.NoError(t, err)
	return profiles.NewResolver(registry, opts, zerolog.Nop())
}

func TestResolveHostMatchOverridesExplicitID(t *testing.T) {
	acme := validProfile("acme")
	acme.HostPatterns = []string{"*.acme.test"}
	other := validProfile("other")
	other.HostPatterns = []string{"crm.other.test"}

	resolver := newTestResolver(t, []*profiles.Profile{acme, other}, profiles.ResolverOptions{})

	resolved, err := resolver.Resolve(profiles.RequestMeta{
		Host:       "mail.acme.test",
		ExplicitID: "other",
	})
	require.NoError(t, err)
	require.Equal(t, "acme", resolved.ID)
}

func TestResolveOverrideLogsExplicitSource(t *testing.T) {
	acme := validProfile("acme")
	acme.HostPatterns = []string{"*.acme.test"}
	other := validProfile("other")

	registry, err := profiles.NewRegistry([]*profiles.Profile{acme, other})
	require.NoError(t, err)

	var logs bytes.Buffer
	resolver := profiles.NewResolver(registry, profiles.ResolverOptions{}, zerolog.New(&logs))

	resolved, err := resolver.Resolve(profiles.RequestMeta{
		Host:           "mail.acme.test",
		ExplicitID:     "other",
		ExplicitSource: "header",
	})
	require.NoError(t, err)
	require.Equal(t, "acme", resolved.ID)
	require.Contains(t, logs.String(), `"requestedProfile":"other"`)
	require.Contains(t, logs.String(), `"requestedVia":"header"`)
}

func TestResolveStrictRoutingImpliedByHostPatterns(t *testing.T) {
	acme := validProfile("acme")
	acme.HostPatterns = []string{"crm.acme.test"}

	resolver := newTestResolver(t, []*profiles.Profile{acme}, profiles.ResolverOptions{})

	_, err := resolver.Resolve(profiles.RequestMeta{Host: "unknown.test", ExplicitID: "acme"})
	var resolutionErr *profiles.ResolutionError
	require.ErrorAs(t, err, &resolutionErr)
}

func TestResolveStrictRoutingFlag(t *testing.T) {
	resolver := newTestResolver(t, []*profiles.Profile{validProfile("acme")}, profiles.ResolverOptions{
		StrictHostRouting: true,
	})

	_, err := resolver.Resolve(profiles.RequestMeta{Host: "anything.test"})
	var resolutionErr *profiles.ResolutionError
	require.ErrorAs(t, err, &resolutionErr)
}

func TestResolveExplicitID(t *testing.T) {
	resolver := newTestResolver(t, []*profiles.Profile{validProfile("acme"), validProfile("beta")}, profiles.ResolverOptions{})

	resolved, err := resolver.Resolve(profiles.RequestMeta{Host: "plain.test", ExplicitID: "beta"})
	require.NoError(t, err)
	require.Equal(t, "beta", resolved.ID)

	_, err = resolver.Resolve(profiles.RequestMeta{Host: "plain.test", ExplicitID: "missing"})
	require.Error(t, err)
}

func TestResolveSingleProfileDefault(t *testing.T) {
	resolver := newTestResolver(t, []*profiles.Profile{validProfile("only")}, profiles.ResolverOptions{})

	resolved, err := resolver.Resolve(profiles.RequestMeta{Host: "plain.test"})
	require.NoError(t, err)
	require.Equal(t, "only", resolved.ID)
}

func TestResolveMultipleProfilesNoSelectionFails(t *testing.T) {
	resolver := newTestResolver(t, []*profiles.Profile{validProfile("a"), validProfile("b")}, profiles.ResolverOptions{})

	_, err := resolver.Resolve(profiles.RequestMeta{Host: "plain.test"})
	require.Error(t, err)
}

func TestForwardedHostHonoredOnlyWhenTrusted(t *testing.T) {
	acme := validProfile("acme")
	acme.HostPatterns = []string{"mail.acme.test"}

	tests := []struct {
		name      string
		opts      profiles.ResolverOptions
		peer      string
		wantMatch bool
	}{
		{
			name:      "trusted exact IP",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"10.0.0.1"}},
			peer:      "10.0.0.1:39122",
			wantMatch: true,
		},
		{
			name:      "trusted CIDR",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"10.0.0.0/8"}},
			peer:      "10.42.1.9:1234",
			wantMatch: true,
		},
		{
			name:      "trusted IPv6 CIDR",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"fd00::/8"}},
			peer:      "[fd00::1]:443",
			wantMatch: true,
		},
		{
			name:      "trust disabled",
			opts:      profiles.ResolverOptions{TrustForwardedHost: false, TrustedProxies: []string{"10.0.0.1"}},
			peer:      "10.0.0.1:39122",
			wantMatch: false,
		},
		{
			name:      "peer not in list",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"10.0.0.1"}},
			peer:      "192.168.1.50:8000",
			wantMatch: false,
		},
		{
			name:      "invalid allow-list entry skipped",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"not-an-ip", "10.0.0.1"}},
			peer:      "10.0.0.1:39122",
			wantMatch: true,
		},
		{
			name:      "unparseable peer ignored",
			opts:      profiles.ResolverOptions{TrustForwardedHost: true, TrustedProxies: []string{"10.0.0.1"}},
			peer:      "garbage",
			wantMatch: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := newTestResolver(t, []*profiles.Profile{acme}, tc.opts)
			resolved, err := resolver.Resolve(profiles.RequestMeta{
				Host:          "direct.test",
				ForwardedHost: "mail.acme.test",
				PeerAddr:      tc.peer,
			})
			if tc.wantMatch {
				require.NoError(t, err)
				require.Equal(t, "acme", resolved.ID)
				return
			}
			// The direct host does not match, and host patterns imply strict
			// routing, so an untrusted forwarded host must fail resolution.
			require.Error(t, err)
		})
	}
}
