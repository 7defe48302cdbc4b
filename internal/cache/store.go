package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
)

// appDirName is the per-application directory under the temp and user cache roots.
const appDirName = "go_draconis"

// Store is a policy-driven cache. It is meant to be owned by one consumer;
// sharing between stores happens only through the file-backed locations.
type Store struct {
	memory map[string]memEntry
	files  map[Location]*FileStore
	policy Policy
	ignore bool
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the initial global policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithIgnoreCache makes every lookup fetch and store unconditionally.
func WithIgnoreCache(ignore bool) Option {
	return func(s *Store) {
		s.ignore = ignore
	}
}

// WithPersistentDir overrides the directory of LocationPersistent.
func WithPersistentDir(dir string) Option {
	return func(s *Store) {
		s.files[LocationPersistent] = NewFileStore(dir)
	}
}

// WithTempDir overrides the directory of LocationTemp.
func WithTempDir(dir string) Option {
	return func(s *Store) {
		s.files[LocationTemp] = NewFileStore(dir)
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// DefaultPersistentDir returns the OS-appropriate persistent cache root.
func DefaultPersistentDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(os.TempDir(), appDirName+"-persistent")
	}

	return filepath.Join(base, appDirName)
}

// DefaultTempDir returns the temp-directory cache root.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), appDirName)
}

// NewStore creates a Store with a TempDirectory global policy and the default roots.
func NewStore(opts ...Option) *Store {
	s := &Store{
		memory: make(map[string]memEntry),
		files: map[Location]*FileStore{
			LocationTemp:       NewFileStore(DefaultTempDir()),
			LocationPersistent: NewFileStore(DefaultPersistentDir()),
		},
		policy: TempDirectory(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetGlobalPolicy replaces the policy used by GetOrSet. Entries already
// stored keep whatever expiry they were written with.
func (s *Store) SetGlobalPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policy = p
}

// GlobalPolicy returns the current global policy.
func (s *Store) GlobalPolicy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.policy
}

// IgnoresCache reports whether lookups always fetch.
func (s *Store) IgnoresCache() bool {
	return s.ignore
}

// FileStore returns the file store backing loc, or nil for memory.
func (s *Store) FileStore(loc Location) *FileStore {
	return s.files[loc]
}

// GetOrSet looks key up under the store's global policy.
func GetOrSet[T any](s *Store, key Key[T], fetch func() (T, error)) (T, error) {
	return GetOrSetWithPolicy(s, key, s.GlobalPolicy(), fetch)
}

// GetOrSetWithPolicy returns the live value stored under key at
// policy.Location, or calls fetch and stores its result. Fetch errors are
// returned unchanged and leave any previous entry in place. A failure to
// persist a fetched value is logged; the value is still returned.
func GetOrSetWithPolicy[T any](s *Store, key Key[T], policy Policy, fetch func() (T, error)) (T, error) {
	var zero T

	name := key.Name()
	if name == "" {
		return zero, ErrInvalidKey
	}

	if !s.ignore {
		if v, ok := lookup[T](s, name, policy); ok {
			return v, nil
		}
	}

	v, err := fetch()
	if err != nil {
		return zero, err
	}

	if err := store(s, name, policy, v); err != nil {
		log.Warn().
			Err(err).
			Str("event", "cache_write_failed").
			Str("key", name).
			Str("location", policy.Location.String()).
			Msg("failed to store fetched value")
	}

	return v, nil
}

func lookup[T any](s *Store, name string, policy Policy) (T, bool) {
	var zero T
	now := s.now()

	if policy.Location == LocationMemory {
		s.mu.Lock()
		entry, ok := s.memory[name]
		s.mu.Unlock()
		if !ok || !policy.live(entry.storedAt, entry.expiresAt, now) {
			return zero, false
		}

		v, ok := entry.value.(T)
		if !ok {
			log.Debug().Str("key", name).Msg("cached value has a different type, refetching")
			return zero, false
		}

		return v, true
	}

	fs := s.files[policy.Location]
	if fs == nil {
		return zero, false
	}

	entry, err := fs.Get(name)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Debug().Err(err).Str("key", name).Msg("cache read failed")
		}

		return zero, false
	}
	if !policy.live(entry.StoredAt, entry.ExpiresAt, now) {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(entry.Data, &v); err != nil {
		log.Debug().Err(err).Str("key", name).Msg("cached value does not decode, refetching")
		return zero, false
	}

	return v, true
}

func store[T any](s *Store, name string, policy Policy, v T) error {
	now := s.now()

	if policy.Location == LocationMemory {
		s.mu.Lock()
		s.memory[name] = memEntry{value: v, storedAt: now, expiresAt: policy.expiry(now)}
		s.mu.Unlock()

		return nil
	}

	fs := s.files[policy.Location]
	if fs == nil {
		return errors.Wrapf(ErrNoFileStore, errors.CodeInvalidConfig, "location %s", policy.Location)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "failed to encode cache value")
	}

	return fs.Set(&Entry{
		Key:       name,
		Data:      data,
		StoredAt:  now,
		ExpiresAt: policy.expiry(now),
	})
}

// Invalidate removes key from memory and from every file-backed location.
// Absent keys are ignored.
func (s *Store) Invalidate(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	var firstErr error
	for _, loc := range []Location{LocationTemp, LocationPersistent} {
		fs := s.files[loc]
		if fs == nil {
			continue
		}
		if err := fs.Delete(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// InvalidateAll clears the memory map and, if includeOnDisk is set, deletes
// every cache file under the store's roots. It returns the number of files removed.
func (s *Store) InvalidateAll(includeOnDisk bool) (int, error) {
	s.mu.Lock()
	s.memory = make(map[string]memEntry)
	s.mu.Unlock()

	if !includeOnDisk {
		return 0, nil
	}

	removed := 0
	seen := make(map[string]bool)
	for _, loc := range []Location{LocationTemp, LocationPersistent} {
		fs := s.files[loc]
		if fs == nil || seen[fs.Directory()] {
			continue
		}
		seen[fs.Directory()] = true

		n, err := fs.Clear()
		removed += n
		if err != nil {
			return removed, err
		}
	}

	log.Debug().
		Str("event", "cache_cleared").
		Int("removed", removed).
		Msg("invalidated all cache entries")

	return removed, nil
}
