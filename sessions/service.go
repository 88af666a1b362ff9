package sessions

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/profiles"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CredentialProvider is the slice of the credentials package the login use
// case needs.
type CredentialProvider interface {
	UserToken(ctx context.Context, profile *profiles.Profile, username, password string) (*credentials.UserGrant, error)
}

// Service issues and validates session tokens and owns the session store.
type Service struct {
	store       Store
	signer      *signer
	credentials CredentialProvider
	lifetime    time.Duration
	logger      zerolog.Logger
	nowTime     func() time.Time
}

// ServiceOption modifies a Service.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLifetime overrides the session-token lifetime. Values under the floor
// are raised to it.
func WithLifetime(lifetime time.Duration) ServiceOption {
	return func(s *Service) {
		if lifetime < minLifetime {
			lifetime = minLifetime
		}
		s.lifetime = lifetime
	}
}

// NewService builds a session Service.
func NewService(store Store, creds CredentialProvider, signingKey string, logger zerolog.Logger, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if creds == nil {
		return nil, errors.New("[NewService] credential provider is required")
	}
	sig, err := newSigner(signingKey)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:       store,
		signer:      sig,
		credentials: creds,
		lifetime:    DefaultLifetime,
		logger:      logger.With().Str("component", "sessions").Logger(),
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// LoginResult is what a successful user-identity login returns to the
// boundary layer.
type LoginResult struct {
	Token     string
	Subject   string
	ExpiresAt int64
}

// Login performs the user-identity grant, persists the session record, and
// issues a session token for it. Re-login overwrites any prior record for
// the new subject.
func (s *Service) Login(ctx context.Context, profile *profiles.Profile, username, password, email string) (*LoginResult, error) {
	grant, err := s.credentials.UserToken(ctx, profile, username, password)
	if err != nil {
		return nil, err
	}

	subject, err := NewSubject()
	if err != nil {
		return nil, err
	}
	now := s.nowTime()
	session := &Session{
		Subject:      subject,
		ProfileID:    profile.ID,
		Username:     username,
		Email:        email,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenExpiry:  grant.ExpiresAt,
		CreatedAt:    now.Unix(),
	}
	if err := s.store.Upsert(session); err != nil {
		return nil, errors.Wrap(err, "[Login] store.Upsert")
	}

	token, expiresAt, err := s.Issue(subject, profile.ID, username, email)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("profile", profile.ID).Str("subject", subject).Msg("user session created")
	return &LoginResult{Token: token, Subject: subject, ExpiresAt: expiresAt}, nil
}

// Logout removes the persisted session record.
func (s *Service) Logout(subject string) error {
	return s.store.Delete(subject)
}

// Issue signs a session token for the given subject.
func (s *Service) Issue(subject, profileID, username, email string) (string, int64, error) {
	now := s.nowTime()
	expiresAt := now.Add(s.lifetime)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		ProfileID: profileID,
		Username:  username,
		Email:     email,
	}
	token, err := s.signer.sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, expiresAt.Unix(), nil
}

// Validate checks a session token and returns its claims.
func (s *Service) Validate(raw string) (*Claims, error) {
	return s.signer.verify(raw, s.nowTime())
}

// Load returns the session record behind validated claims. A missing record
// after a structurally valid token is itself an auth failure.
func (s *Service) Load(claims *Claims) (*Session, error) {
	session, err := s.store.Get(claims.Subject)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
