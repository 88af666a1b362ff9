package sessions

import "errors"

var (
	// ErrInvalidOrExpiredToken covers every token rejection: malformed
	// structure, unsupported algorithm, bad signature, or expiry. One
	// generic error so callers cannot learn which check failed.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired session token")

	// ErrSessionNotFound means a structurally valid token referenced a
	// session record that no longer exists.
	ErrSessionNotFound = errors.New("session not found")
)
