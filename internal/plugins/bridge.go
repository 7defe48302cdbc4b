package plugins

import (
	"time"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/rs/zerolog/log"
)

// CacheBridge adapts a cache.Store to the narrow plugin.Cache interface.
// Values written through the bridge are persistent.
type CacheBridge struct {
	store *cache.Store
}

var _ plugin.Cache = (*CacheBridge)(nil)

// NewCacheBridge wraps store.
func NewCacheBridge(store *cache.Store) *CacheBridge {
	return &CacheBridge{store: store}
}

// Get returns the live value stored under key. It never writes.
func (b *CacheBridge) Get(key string) (string, bool) {
	// The fetcher always fails, so a miss has no side effect. NeverExpire
	// defers to the expiry recorded by Set.
	v, err := cache.GetOrSetWithPolicy(b.store, cache.NewKey[string](key), cache.NeverExpire(),
		func() (string, error) {
			return "", cache.ErrCacheMiss
		})
	if err != nil {
		return "", false
	}

	return v, true
}

// Set replaces the value under key. A ttlSeconds of zero never expires.
func (b *CacheBridge) Set(key, value string, ttlSeconds uint32) {
	if err := b.store.Invalidate(key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("failed to invalidate plugin cache key")
	}

	policy := cache.Persistent(time.Duration(ttlSeconds) * time.Second)
	_, err := cache.GetOrSetWithPolicy(b.store, cache.NewKey[string](key), policy,
		func() (string, error) {
			return value, nil
		})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to store plugin cache value")
	}
}
