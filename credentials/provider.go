// Package credentials obtains upstream access tokens for a profile under the
// two supported grants: a cacheable client_credentials flow identifying the
// connector itself, and a per-login password flow identifying an end user.
package credentials

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/inboxcrm/connector/credentials/tokencache"
	interrors "github.com/inboxcrm/connector/internal/errors"
	"github.com/inboxcrm/connector/internal/utils"
	"github.com/inboxcrm/connector/profiles"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	connectTimeout = 5 * time.Second
	totalTimeout   = 15 * time.Second

	// Applied when the upstream omits expires_in or reports a non-positive
	// lifetime.
	defaultTokenTTL = time.Hour
)

// UserGrant is the result of a user-identity login. Never cached; the caller
// persists it inside the Session.
type UserGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch seconds
}

// Provider acquires and caches upstream access tokens.
type Provider struct {
	cache      tokencache.Cache
	httpClient *http.Client
	logger     zerolog.Logger
	nowTime    func() time.Time
}

// ProviderOption modifies a Provider.
type ProviderOption func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// WithHTTPClient replaces the token-endpoint HTTP client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider builds a Provider over the given token cache.
func NewProvider(cache tokencache.Cache, logger zerolog.Logger, options ...ProviderOption) (*Provider, error) {
	if cache == nil {
		return nil, errors.New("[NewProvider] token cache is required")
	}
	p := &Provider{
		cache:      cache,
		httpClient: NewHTTPClient(),
		logger:     logger.With().Str("component", "credentials").Logger(),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// NewHTTPClient returns the client used for upstream calls: bounded connect
// and total timeouts so a stuck upstream surfaces as a transport failure.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// ServiceToken returns a service-identity access token for the profile,
// consulting the cache tiers before hitting the token endpoint.
func (p *Provider) ServiceToken(ctx context.Context, profile *profiles.Profile) (string, error) {
	if strings.TrimSpace(profile.OAuth.ClientID) == "" || strings.TrimSpace(profile.OAuth.ClientSecret) == "" {
		return "", MissingCredentials(profile.ID)
	}

	now := p.nowTime()
	if entry, ok := p.cache.Get(profile.ID, now); ok {
		return entry.AccessToken, nil
	}

	cfg := clientcredentials.Config{
		ClientID:     profile.OAuth.ClientID,
		ClientSecret: profile.OAuth.ClientSecret,
		TokenURL:     profile.OAuth.TokenURL,
	}
	tok, err := cfg.Token(p.oauthContext(ctx))
	if err != nil {
		return "", p.translateTokenError(err, profile.ID)
	}
	if tok.AccessToken == "" {
		return "", errors.Wrap(interrors.ErrUpstreamBadResponse, "[ServiceToken] empty access token")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() || !expiresAt.After(now) {
		expiresAt = now.Add(defaultTokenTTL)
	}
	p.cache.Put(profile.ID, tokencache.Entry{
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresAt.Unix(),
	})
	p.logger.Debug().Str("profile", profile.ID).Time("expiresAt", expiresAt).Msg("cached service token")
	return tok.AccessToken, nil
}

// UserToken performs a password grant for the given end user on the
// profile's token endpoint. Results are never cached.
func (p *Provider) UserToken(ctx context.Context, profile *profiles.Profile, username, password string) (*UserGrant, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, &AuthFailure{SuggestedStatus: 401, Reason: "username and password are required"}
	}

	cfg := oauth2.Config{
		ClientID:     profile.OAuth.ClientID,
		ClientSecret: profile.OAuth.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: profile.OAuth.TokenURL},
	}
	tok, err := cfg.PasswordCredentialsToken(p.oauthContext(ctx), username, password)
	if err != nil {
		return nil, p.translateTokenError(err, profile.ID)
	}
	if tok.AccessToken == "" {
		return nil, errors.Wrap(interrors.ErrUpstreamBadResponse, "[UserToken] empty access token")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() || !expiresAt.After(p.nowTime()) {
		expiresAt = p.nowTime().Add(defaultTokenTTL)
	}
	return &UserGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

// oauthContext installs the timeout client for the x/oauth2 internals.
func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// translateTokenError classifies a token-endpoint failure. HTTP responses
// become AuthFailures with a suggested status; anything else is a transport
// failure.
func (p *Provider) translateTokenError(err error, profileID string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		body := string(retrieveErr.Body)
		suggested := ClassifyOAuthFailure(status, body)
		reason := RedactSecrets(utils.Truncate(body, 200))
		p.logger.Warn().
			Str("profile", profileID).
			Int("upstreamStatus", status).
			Int("suggestedStatus", suggested).
			Msg("token endpoint rejected request")
		return &AuthFailure{SuggestedStatus: suggested, Reason: reason}
	}
	p.logger.Warn().Str("profile", profileID).Msg("token endpoint unreachable")
	return errors.Wrap(interrors.ErrUpstreamUnreachable, RedactSecrets(err.Error()))
}
