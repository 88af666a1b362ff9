package credentials_test

import (
	"testing"

	"github.com/inboxcrm/connector/credentials"
	"github.com/stretchr/testify/require"
)

func TestClassifyOAuthFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"bad request is auth", 400, `{"error":"unsupported"}`, 401},
		{"unauthorized is auth", 401, "", 401},
		{"server error is gateway", 500, "boom", 502},
		{"not found is gateway", 404, "", 502},
		{"invalid_grant forces auth on 5xx", 500, `{"error":"invalid_grant"}`, 401},
		{"invalid_client forces auth on 5xx", 503, "invalid_client", 401},
		{"password text forces auth", 500, "Password is invalid: too short", 401},
		{"no user found forces auth", 500, "No user found for name", 401},
		{"invalid credentials forces auth", 502, "Invalid Credentials supplied", 401},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, credentials.ClassifyOAuthFailure(tc.status, tc.body))
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	in := "POST grant_type=password&password=hunter2&client_secret=s3cr3t&username=jane"
	out := credentials.RedactSecrets(in)
	require.NotContains(t, out, "hunter2")
	require.NotContains(t, out, "s3cr3t")
	require.Contains(t, out, "username=jane")

	freeform := "login failed: password is invalid: hunter2 was rejected"
	require.Equal(t, "login failed: password is invalid: ***", credentials.RedactSecrets(freeform))
}
