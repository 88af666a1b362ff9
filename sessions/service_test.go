package sessions_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/inboxcrm/connector/credentials"
	"github.com/inboxcrm/connector/internal/kvstore"
	"github.com/inboxcrm/connector/profiles"
	"github.com/inboxcrm/connector/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-0123456789"

type fakeCredentialProvider struct {
	grant *credentials.UserGrant
	err   error
	calls int
}

func (f *fakeCredentialProvider) UserToken(ctx context.Context, profile *profiles.Profile, username, password string) (*credentials.UserGrant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

func newTestService(t *testing.T, creds sessions.CredentialProvider, options ...sessions.ServiceOption) *sessions.Service {
	t.Helper()
	service, err := sessions.NewService(
		sessions.NewKVStore(kvstore.NewMemoryStore()),
		creds,
		testSigningKey,
		zerolog.Nop(),
		options...,
	)
	require.NoError(t, err)
	return service
}

func testProfile() *profiles.Profile {
	return &profiles.Profile{
		ID:      "acme",
		BaseURL: "https://crm.acme.test/api/v1",
		OAuth: profiles.OAuthSettings{
			TokenURL: "https://crm.acme.test/oauth/token",
			ClientID: "plugin", ClientSecret: "hunter2",
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	service := newTestService(t, &fakeCredentialProvider{})

	token, _, err := service.Issue("subject-1", "acme", "jane", "jane@acme.test")
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "subject-1", claims.Subject)
	require.Equal(t, "acme", claims.ProfileID)
	require.Equal(t, "jane", claims.Username)
	require.Equal(t, "jane@acme.test", claims.Email)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	clock := now
	service := newTestService(t, &fakeCredentialProvider{},
		sessions.WithNowTime(func() time.Time { return clock }))

	token, _, err := service.Issue("subject-1", "acme", "jane", "")
	require.NoError(t, err)

	clock = now.Add(9 * time.Hour)
	_, err = service.Validate(token)
	require.ErrorIs(t, err, sessions.ErrInvalidOrExpiredToken)
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	service := newTestService(t, &fakeCredentialProvider{})

	token, _, err := service.Issue("subject-1", "acme", "jane", "")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = service.Validate(tampered)
	require.ErrorIs(t, err, sessions.ErrInvalidOrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	service := newTestService(t, &fakeCredentialProvider{})

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := service.Validate(raw)
		require.ErrorIs(t, err, sessions.ErrInvalidOrExpiredToken)
	}
}

func TestLifetimeFloor(t *testing.T) {
	now := time.Now()
	clock := now
	service := newTestService(t, &fakeCredentialProvider{},
		sessions.WithLifetime(time.Second),
		sessions.WithNowTime(func() time.Time { return clock }))

	token, expiresAt, err := service.Issue("subject-1", "acme", "jane", "")
	require.NoError(t, err)
	require.Equal(t, now.Add(60*time.Second).Unix(), expiresAt)

	clock = now.Add(30 * time.Second)
	_, err = service.Validate(token)
	require.NoError(t, err)
}

func TestLoginPersistsSessionAndIssuesToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Unix()
	creds := &fakeCredentialProvider{grant: &credentials.UserGrant{
		AccessToken:  "upstream-tok",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiry,
	}}
	service := newTestService(t, creds)

	result, err := service.Login(context.Background(), testProfile(), "jane", "pw", "jane@acme.test")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Len(t, result.Subject, 32) // 128-bit hex

	claims, err := service.Validate(result.Token)
	require.NoError(t, err)

	session, err := service.Load(claims)
	require.NoError(t, err)
	require.Equal(t, "upstream-tok", session.AccessToken)
	require.Equal(t, "refresh-1", session.RefreshToken)
	require.Equal(t, expiry, session.TokenExpiry)
	require.Equal(t, "acme", session.ProfileID)
}

func TestLoginPropagatesCredentialFailure(t *testing.T) {
	creds := &fakeCredentialProvider{err: &credentials.AuthFailure{SuggestedStatus: 401, Reason: "nope"}}
	service := newTestService(t, creds)

	_, err := service.Login(context.Background(), testProfile(), "jane", "wrong", "")
	var authErr *credentials.AuthFailure
	require.ErrorAs(t, err, &authErr)
}

func TestLoadMissingSessionIsAuthFailure(t *testing.T) {
	service := newTestService(t, &fakeCredentialProvider{})

	token, _, err := service.Issue("ghost-subject", "acme", "jane", "")
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	_, err = service.Load(claims)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestLogoutDeletesRecord(t *testing.T) {
	creds := &fakeCredentialProvider{grant: &credentials.UserGrant{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).Unix()}}
	service := newTestService(t, creds)

	result, err := service.Login(context.Background(), testProfile(), "jane", "pw", "")
	require.NoError(t, err)

	require.NoError(t, service.Logout(result.Subject))

	claims, err := service.Validate(result.Token)
	require.NoError(t, err)
	_, err = service.Load(claims)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}
