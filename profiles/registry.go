package profiles

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Registry is the validated, immutable set of profiles for this process.
type Registry struct {
	profiles []*Profile
	byID     map[string]*Profile
}

type registryDocument struct {
	Profiles []*Profile `yaml:"profiles"`
}

// LoadRegistry reads a YAML profile registry. Any malformed entry or
// duplicate id rejects the whole registry.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadRegistry] ReadFile")
	}
	var doc registryDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "[LoadRegistry] yaml.Unmarshal")
	}
	return NewRegistry(doc.Profiles)
}

// NewRegistry validates the profile list and fails closed on any bad entry.
func NewRegistry(list []*Profile) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("[NewRegistry] no profiles configured")
	}
	byID := make(map[string]*Profile, len(list))
	for i, p := range list {
		if p == nil {
			return nil, errors.Errorf("[NewRegistry] profile %d is empty", i)
		}
		if err := validateProfile(p); err != nil {
			return nil, errors.Wrapf(err, "[NewRegistry] profile %q", p.ID)
		}
		if _, exists := byID[p.ID]; exists {
			return nil, errors.Errorf("[NewRegistry] duplicate profile id %q", p.ID)
		}
		byID[p.ID] = p
	}
	return &Registry{profiles: list, byID: byID}, nil
}

func validateProfile(p *Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return errors.New("base_url is required")
	}
	switch p.APIFlavor {
	case "", FlavorRest, FlavorLegacy:
	default:
		return errors.Errorf("unknown api_flavor %q", p.APIFlavor)
	}
	if p.APIFlavor == "" {
		p.APIFlavor = FlavorRest
	}
	if p.OAuth.GrantType == "" {
		p.OAuth.GrantType = "client_credentials"
	}
	for _, pattern := range p.HostPatterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" || trimmed == "*." || trimmed == "*" {
			return errors.Errorf("invalid host pattern %q", pattern)
		}
	}
	return nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the profiles in registration order.
func (r *Registry) All() []*Profile {
	return r.profiles
}

// HasHostPatterns reports whether any registered profile declares host
// patterns. When true, strict host routing is implied.
func (r *Registry) HasHostPatterns() bool {
	for _, p := range r.profiles {
		if len(p.HostPatterns) > 0 {
			return true
		}
	}
	return false
}

// MatchHost returns the profile whose host patterns match host, if any.
func (r *Registry) MatchHost(host string) (*Profile, bool) {
	for _, p := range r.profiles {
		if p.MatchesHost(host) {
			return p, true
		}
	}
	return nil, false
}
