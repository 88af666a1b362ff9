package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/inboxcrm/connector/crm"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/sessions"
	"github.com/inboxcrm/connector/upstream"
)

const tokenExpirySkew = 30 * time.Second

// resolveProfile maps the request to its governing profile from the Host
// header, the trusted forwarded host, or the explicit id channels.
func (s *Server) resolveProfile(r *http.Request) (*profiles.Profile, error) {
	explicitID := r.URL.Query().Get(ProfileQueryParam)
	explicitSource := "query"
	if explicitID == "" {
		explicitID = r.Header.Get(ProfileHeader)
		explicitSource = "header"
	}
	return s.resolver.Resolve(profiles.RequestMeta{
		Host:           r.Host,
		ForwardedHost:  r.Header.Get(forwardedHostHdr),
		PeerAddr:       r.RemoteAddr,
		ExplicitID:     explicitID,
		ExplicitSource: explicitSource,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(authorizationHdr)
	if !strings.HasPrefix(header, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerScheme))
}

// callIdentity is who a CRM operation runs as: the session behind a bearer
// token, or the profile's service principal when no token is presented.
type callIdentity struct {
	session *sessions.Session
	tokens  upstream.TokenProvider
}

func (id *callIdentity) audit() crm.TaskAudit {
	if id.session == nil {
		return crm.TaskAudit{}
	}
	return crm.TaskAudit{
		CreatedBy:          id.session.Username,
		CreatedBySubjectID: id.session.Subject,
	}
}

// authenticate picks the upstream token source for the request. A presented
// session token must be valid and belong to the resolved profile; with no
// token the profile's service flow is used.
func (s *Server) authenticate(r *http.Request, profile *profiles.Profile) (*callIdentity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return &callIdentity{
			tokens: func(ctx context.Context) (string, error) {
				return s.credentials.ServiceToken(ctx, profile)
			},
		}, nil
	}

	claims, err := s.sessions.Validate(raw)
	if err != nil {
		return nil, err
	}
	if claims.ProfileID != profile.ID {
		return nil, sessions.ErrInvalidOrExpiredToken
	}
	session, err := s.sessions.Load(claims)
	if err != nil {
		return nil, err
	}
	return &callIdentity{
		session: session,
		tokens: func(ctx context.Context) (string, error) {
			if session.TokenExpiry > 0 && time.Now().After(time.Unix(session.TokenExpiry, 0).Add(-tokenExpirySkew)) {
				// The upstream grant behind this session ran out; the plugin
				// has to log in again.
				return "", sessions.ErrInvalidOrExpiredToken
			}
			return session.AccessToken, nil
		},
	}, nil
}

// adapterFor builds the per-request CRM adapter bound to the resolved
// profile and the request's token source.
func (s *Server) adapterFor(profile *profiles.Profile, identity *callIdentity) (*crm.Adapter, error) {
	client, err := upstream.NewClient(upstream.ClientOptions{
		BaseURL:       profile.BaseURL,
		TokenProvider: identity.tokens,
		UserAgent:     s.config.GetAppName(),
		Logger:        s.logger,
	})
	if err != nil {
		return nil, err
	}
	return crm.NewAdapter(profile, client, s.dedup, s.logger)
}
