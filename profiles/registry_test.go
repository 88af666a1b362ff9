package profiles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inboxcrm/connector/profiles"
	"github.com/stretchr/testify/require"
)

func validProfile(id string) *profiles.Profile {
	return &profiles.Profile{
		ID:      id,
		Name:    "Test " + id,
		BaseURL: "https://crm.example.test/api/v1",
		OAuth: profiles.OAuthSettings{
			TokenURL:     "https://crm.example.test/oauth/token",
			ClientID:     "client-" + id,
			ClientSecret: "secret-" + id,
		},
	}
}

func TestNewRegistryRejectsDuplicateIDs(t *testing.T) {
	_, err := profiles.NewRegistry([]*profiles.Profile{validProfile("acme"), validProfile("acme")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate profile id")
}

func TestNewRegistryFailsClosedOnMalformedEntry(t *testing.T) {
	bad := validProfile("acme")
	bad.BaseURL = ""
	_, err := profiles.NewRegistry([]*profiles.Profile{validProfile("other"), bad})
	require.Error(t, err)
}

func TestNewRegistryRejectsEmptyList(t *testing.T) {
	_, err := profiles.NewRegistry(nil)
	require.Error(t, err)
}

func TestNewRegistryDefaultsGrantTypeAndFlavor(t *testing.T) {
	p := validProfile("acme")
	registry, err := profiles.NewRegistry([]*profiles.Profile{p})
	require.NoError(t, err)

	loaded, ok := registry.Get("acme")
	require.True(t, ok)
	require.Equal(t, "client_credentials", loaded.OAuth.GrantType)
	require.Equal(t, profiles.FlavorRest, loaded.APIFlavor)
}

func TestNewRegistryRejectsBareWildcardPattern(t *testing.T) {
	p := validProfile("acme")
	p.HostPatterns = []string{"*"}
	_, err := profiles.NewRegistry([]*profiles.Profile{p})
	require.Error(t, err)
}

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := `profiles:
  - id: acme
    name: Acme Corp
    base_url: https://crm.acme.test/api/v1
    api_flavor: legacy
    host_patterns:
      - "*.acme.test"
    oauth:
      token_url: https://crm.acme.test/oauth/token
      client_id: plugin
      client_secret: hunter2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	registry, err := profiles.LoadRegistry(path)
	require.NoError(t, err)

	p, ok := registry.Get("acme")
	require.True(t, ok)
	require.Equal(t, profiles.FlavorLegacy, p.APIFlavor)
	require.True(t, registry.HasHostPatterns())
}

func TestProfileMatchesHost(t *testing.T) {
	p := validProfile("acme")
	p.HostPatterns = []string{"crm.acme.test", "*.mail.acme.test"}

	require.True(t, p.MatchesHost("crm.acme.test"))
	require.True(t, p.MatchesHost("CRM.ACME.TEST"))
	require.True(t, p.MatchesHost("crm.acme.test:8443"))
	require.True(t, p.MatchesHost("eu.mail.acme.test"))
	require.True(t, p.MatchesHost("mail.acme.test"))
	require.False(t, p.MatchesHost("crm.other.test"))
	require.False(t, p.MatchesHost("acme.test"))
	require.False(t, p.MatchesHost(""))
}
