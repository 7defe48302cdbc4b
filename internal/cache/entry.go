package cache

import (
	"encoding/json"
	"time"
)

// Key names a cache entry and fixes the type of its value. Reading a key back
// with a different type is a compile error rather than a decoding surprise.
type Key[T any] struct {
	name string
}

// NewKey returns the typed key for name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the raw key string.
func (k Key[T]) Name() string {
	return k.name
}

func (k Key[T]) String() string {
	return k.name
}

// Entry is the on-disk form of a file-backed cache entry.
type Entry struct {
	// Key is the cache key as given; the file name is its escaped form.
	Key string `json:"key"`

	// Data is the JSON-encoded value.
	Data json.RawMessage `json:"data"`

	// StoredAt is when the value was fetched.
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is set when the writing policy had a TTL.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// memEntry is an in-memory entry holding the typed value directly.
type memEntry struct {
	value     any
	storedAt  time.Time
	expiresAt *time.Time
}
