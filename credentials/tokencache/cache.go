// Package tokencache caches upstream service-identity access tokens per
// profile, in a process-local tier layered over a durable file tier shared
// across processes on the same host.
package tokencache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/inboxcrm/connector/internal/kvstore"
)

// expirySkew treats tokens as expired slightly before their real expiry so
// an in-flight upstream call never carries a token that lapses mid-request.
const expirySkew = 30 * time.Second

// Entry is a cached access token with its expiry in epoch seconds.
type Entry struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Valid reports whether the entry is still usable at now.
func (e *Entry) Valid(now time.Time) bool {
	if e == nil || e.AccessToken == "" {
		return false
	}
	return now.Before(time.Unix(e.ExpiresAt, 0).Add(-expirySkew))
}

// Cache is one tier of the token cache.
type Cache interface {
	// Get returns the entry for profileID if present and valid at now.
	Get(profileID string, now time.Time) (*Entry, bool)

	// Put stores the entry for profileID.
	Put(profileID string, entry Entry)
}

// MemoryCache is the in-process tier. Cleared on restart.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (m *MemoryCache) Get(profileID string, now time.Time) (*Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[profileID]
	m.mu.RUnlock()
	if !ok || !entry.Valid(now) {
		return nil, false
	}
	return &entry, true
}

func (m *MemoryCache) Put(profileID string, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[profileID] = entry
}

// StoreCache is the durable tier, backed by a kvstore.Store. Unreadable or
// corrupt values are misses.
type StoreCache struct {
	store kvstore.Store
}

var _ Cache = (*StoreCache)(nil)

func NewStoreCache(store kvstore.Store) *StoreCache {
	return &StoreCache{store: store}
}

func (s *StoreCache) Get(profileID string, now time.Time) (*Entry, bool) {
	raw, ok, err := s.store.Get(cacheKey(profileID))
	if err != nil || !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if !entry.Valid(now) {
		return nil, false
	}
	return &entry, true
}

func (s *StoreCache) Put(profileID string, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	// A failed durable write is tolerable, the memory tier still has the
	// token and the next process will fetch a fresh one.
	_ = s.store.Put(cacheKey(profileID), raw)
}

func cacheKey(profileID string) string {
	return "token_" + profileID
}
