// Package sessions issues and validates the compact signed tokens handed to
// the email-client plugin, and persists the upstream user-identity tokens
// behind them.
package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/inboxcrm/connector/internal/kvstore"
	"github.com/pkg/errors"
)

// Session is the authenticated context created by a user-identity login.
// Persisted by subject id; the record itself never expires, expiry is
// enforced by session-token validation.
type Session struct {
	Subject      string `json:"subject"`
	ProfileID    string `json:"profileId"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenExpiry  int64  `json:"tokenExpiry"` // upstream token expiry, epoch seconds
	CreatedAt    int64  `json:"createdAt"`
}

// NewSubject returns a 128-bit random hex subject id.
func NewSubject() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "[NewSubject] rand.Read")
	}
	return hex.EncodeToString(buf), nil
}

// Store persists sessions keyed by subject id.
type Store interface {
	Upsert(session *Session) error
	Get(subject string) (*Session, error)
	Delete(subject string) error
}

// KVStore is a Store over a kvstore.Store.
type KVStore struct {
	store kvstore.Store
}

var _ Store = (*KVStore)(nil)

func NewKVStore(store kvstore.Store) *KVStore {
	return &KVStore{store: store}
}

func (s *KVStore) Upsert(session *Session) error {
	if session == nil || session.Subject == "" {
		return errors.New("[KVStore.Upsert] session subject is required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[KVStore.Upsert] Marshal")
	}
	return s.store.Put(sessionKey(session.Subject), raw)
}

func (s *KVStore) Get(subject string) (*Session, error) {
	raw, ok, err := s.store.Get(sessionKey(subject))
	if err != nil || !ok {
		return nil, ErrSessionNotFound
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *KVStore) Delete(subject string) error {
	return s.store.Delete(sessionKey(subject))
}

func sessionKey(subject string) string {
	return "session_" + subject
}
