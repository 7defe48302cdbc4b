package cache

import (
	"strings"
	"time"

	"github.com/jmgilman/go/errors"
)

// Location selects the backing store of an entry.
type Location uint8

const (
	// LocationMemory keeps entries in the Store's own map.
	LocationMemory Location = iota
	// LocationTemp keeps one file per key under the OS temp directory.
	LocationTemp
	// LocationPersistent keeps one file per key under the user cache directory.
	LocationPersistent
)

// String returns the configuration name of the location.
func (l Location) String() string {
	switch l {
	case LocationMemory:
		return "memory"
	case LocationTemp:
		return "temp"
	case LocationPersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// FileBacked reports whether entries at l are stored on disk.
func (l Location) FileBacked() bool {
	return l == LocationTemp || l == LocationPersistent
}

// ParseLocation converts a configuration name into a Location.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory", "in-memory", "inmemory":
		return LocationMemory, nil
	case "temp", "tmp", "temp-directory", "tempdirectory":
		return LocationTemp, nil
	case "persistent", "disk":
		return LocationPersistent, nil
	default:
		return 0, errors.Wrapf(ErrBadLocation, errors.CodeInvalidConfig, "location %q", s)
	}
}

// NoExpiry is the TTL of entries that never expire.
const NoExpiry time.Duration = 0

// DefaultTempTTL is the TTL used by TempDirectory.
const DefaultTempTTL = 24 * time.Hour

// Policy decides where an entry lives and for how long it is considered live.
type Policy struct {
	Location Location
	TTL      time.Duration
}

// InMemory returns a never-expiring policy for the Store's private map.
func InMemory() Policy {
	return Policy{Location: LocationMemory, TTL: NoExpiry}
}

// TempDirectory returns the default temp-directory policy.
func TempDirectory() Policy {
	return Policy{Location: LocationTemp, TTL: DefaultTempTTL}
}

// NeverExpire returns a persistent policy whose entries never expire.
func NeverExpire() Policy {
	return Policy{Location: LocationPersistent, TTL: NoExpiry}
}

// Persistent returns a persistent policy with the given TTL.
func Persistent(ttl time.Duration) Policy {
	return Policy{Location: LocationPersistent, TTL: ttl}
}

// Expires reports whether entries stored under p have a finite lifetime.
func (p Policy) Expires() bool {
	return p.TTL > NoExpiry
}

// live reports whether an entry stored at storedAt is still valid at now.
// An expiry recorded at write time (expiresAt) always applies; a TTL on the
// reading policy can only shorten it.
func (p Policy) live(storedAt time.Time, expiresAt *time.Time, now time.Time) bool {
	if expiresAt != nil && !now.Before(*expiresAt) {
		return false
	}
	if p.Expires() {
		return now.Sub(storedAt) < p.TTL
	}

	return true
}

// expiry returns the absolute expiry for an entry written at now, or nil.
func (p Policy) expiry(now time.Time) *time.Time {
	if !p.Expires() {
		return nil
	}
	at := now.Add(p.TTL)

	return &at
}
