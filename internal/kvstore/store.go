// Package kvstore provides the key-value store abstraction backing the
// durable token cache, the session store, and the message dedup store.
// Implementations must treat unreadable or missing values as absent rather
// than failing, so shared files corrupted by a crashed writer degrade to a
// cache miss.
package kvstore

// Store maps string keys to opaque byte values.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)

	// Put writes the value for key. Writes must not interleave with
	// concurrent writers on the same backing medium.
	Put(key string, value []byte) error

	// Delete removes the value for key. Deleting an absent key is a no-op.
	Delete(key string) error
}
