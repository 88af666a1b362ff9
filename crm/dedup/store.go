// Package dedup is the content-addressed store mapping a normalized message
// identifier to the CRM record previously created for it. It keeps repeated
// submissions of the same email from producing duplicate tasks.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/inboxcrm/connector/internal/kvstore"
	"github.com/pkg/errors"
)

// KeyType distinguishes the two message-id variants an email client can
// supply.
type KeyType string

const (
	KeyGraph    KeyType = "graph"    // provider-assigned opaque id
	KeyInternet KeyType = "internet" // RFC 5322 Message-ID, normalized
)

// RecordRef points at the CRM record created for a message.
type RecordRef struct {
	Module string `json:"module"`
	ID     string `json:"id"`
	Link   string `json:"link,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Entry is one dedup record. Written once per available key variant so a
// lookup succeeds on either identifier; overwrites are last-writer-wins and
// harmless.
type Entry struct {
	ProfileID          string    `json:"profileId"`
	GraphMessageID     string    `json:"graphMessageId,omitempty"`
	InternetMessageID  string    `json:"internetMessageId,omitempty"`
	Record             RecordRef `json:"record"`
	CreatedAt          int64     `json:"createdAt"`
	CreatedBy          string    `json:"createdBy,omitempty"`
	CreatedBySubjectID string    `json:"createdBySubjectId,omitempty"`
	FromEmail          string    `json:"fromEmail,omitempty"`
}

// Store persists entries content-addressed by (keyType, normalizedValue).
type Store struct {
	store kvstore.Store
}

func NewStore(store kvstore.Store) *Store {
	return &Store{store: store}
}

// Key returns the content address for a key variant.
func Key(keyType KeyType, normalizedValue string) string {
	sum := sha256.Sum256([]byte(string(keyType) + "\n" + normalizedValue))
	return hex.EncodeToString(sum[:])
}

// Get returns the entry for a key variant, if present. Corrupt or missing
// entries are absent.
func (s *Store) Get(keyType KeyType, normalizedValue string) (*Entry, bool) {
	if normalizedValue == "" {
		return nil, false
	}
	raw, ok, err := s.store.Get(Key(keyType, normalizedValue))
	if err != nil || !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Put writes the entry under a key variant.
func (s *Store) Put(keyType KeyType, normalizedValue string, entry *Entry) error {
	if normalizedValue == "" {
		return errors.New("[dedup.Put] normalized value is required")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "[dedup.Put] Marshal")
	}
	return s.store.Put(Key(keyType, normalizedValue), raw)
}
