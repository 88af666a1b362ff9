package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// DefaultLifetime is the session-token lifetime when none is configured.
	DefaultLifetime = 8 * time.Hour

	// minLifetime is the floor applied to configured lifetimes.
	minLifetime = 60 * time.Second
)

// Claims are the signed contents of a session token.
type Claims struct {
	jwt.RegisteredClaims
	ProfileID string `json:"profile"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
}

// signer issues and verifies HS256 compact tokens with a symmetric secret.
type signer struct {
	secret []byte
}

func newSigner(secret string) (*signer, error) {
	if secret == "" {
		return nil, errors.New("[newSigner] session signing key is required")
	}
	return &signer{secret: []byte(secret)}, nil
}

func (s *signer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "[signer.sign] SignedString")
	}
	return signed, nil
}

// verify parses and checks a compact token. All rejections collapse into
// ErrInvalidOrExpiredToken.
func (s *signer) verify(raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}
