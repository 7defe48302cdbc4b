package cache

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/jmgilman/go/errors"
)

const (
	// cacheFileExtension is the file extension used for cache entries.
	cacheFileExtension = ".json"

	// lockFileName guards a directory against concurrent writers in other processes.
	lockFileName = ".lock"
)

// FileStore keeps one JSON file per key in a directory.
// The directory is created on first use.
type FileStore struct {
	directory string
	lock      *flock.Flock
	mu        sync.RWMutex
}

// NewFileStore returns a store rooted at directory.
func NewFileStore(directory string) *FileStore {
	return &FileStore{
		directory: directory,
		lock:      flock.New(filepath.Join(directory, lockFileName)),
	}
}

// Directory returns the root directory.
func (s *FileStore) Directory() string {
	return s.directory
}

// Get reads the entry stored under key.
// Returns ErrCacheMiss if no file exists or the file belongs to another key.
func (s *FileStore) Get(key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	// The flock handle tracks a single holder, so readers serialize here too.
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry Entry
	err := s.withLock(false, func() error {
		data, err := os.ReadFile(s.keyToFilePath(key))
		if err != nil {
			if os.IsNotExist(err) {
				return ErrCacheMiss
			}

			return errors.Wrap(err, CodeIO, "failed to read cache file")
		}

		if err := json.Unmarshal(data, &entry); err != nil {
			return errors.Wrap(err, errors.CodeInvalidInput, "failed to unmarshal cache entry")
		}
		if entry.Key != key {
			return ErrCacheMiss
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Set writes entry, replacing any existing file for the same key.
func (s *FileStore) Set(entry *Entry) error {
	if entry.Key == "" {
		return ErrInvalidKey
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "failed to marshal cache entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(true, func() error {
		filePath := s.keyToFilePath(entry.Key)

		// Write to temporary file first, then rename for atomicity.
		tempPath := filePath + ".tmp"
		if err := os.WriteFile(tempPath, data, 0o600); err != nil {
			return errors.Wrap(err, CodeIO, "failed to write cache file")
		}

		if err := os.Rename(tempPath, filePath); err != nil {
			_ = os.Remove(tempPath)

			return errors.Wrap(err, CodeIO, "failed to rename cache file")
		}

		return nil
	})
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *FileStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists() {
		return nil
	}

	return s.withLock(true, func() error {
		err := os.Remove(s.keyToFilePath(key))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, CodeIO, "failed to delete cache file")
		}

		return nil
	})
}

// Clear removes every cache file and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists() {
		return 0, nil
	}

	removed := 0
	err := s.withLock(true, func() error {
		entries, err := os.ReadDir(s.directory)
		if err != nil {
			return errors.Wrap(err, CodeIO, "failed to read cache directory")
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != cacheFileExtension {
				continue
			}

			filePath := filepath.Join(s.directory, entry.Name())
			if err := os.Remove(filePath); err != nil {
				if os.IsNotExist(err) {
					continue
				}

				return errors.Wrapf(err, CodeIO, "failed to remove cache file %s", entry.Name())
			}
			removed++
		}

		return nil
	})

	return removed, err
}

// Count returns the number of cache files, expired ones included.
func (s *FileStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, errors.Wrap(err, CodeIO, "failed to read cache directory")
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == cacheFileExtension {
			count++
		}
	}

	return count, nil
}

func (s *FileStore) exists() bool {
	info, err := os.Stat(s.directory)

	return err == nil && info.IsDir()
}

// withLock runs fn while holding the directory's advisory lock.
func (s *FileStore) withLock(exclusive bool, fn func() error) error {
	if err := os.MkdirAll(s.directory, 0o750); err != nil {
		return errors.Wrap(err, CodeIO, "failed to create cache directory")
	}

	lockFn := s.lock.RLock
	if exclusive {
		lockFn = s.lock.Lock
	}
	if err := lockFn(); err != nil {
		return errors.Wrap(err, CodeIO, "failed to lock cache directory")
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	return fn()
}

// keyToFilePath converts a cache key to a file path.
// The key is escaped so distinct keys never share a file and separators
// cannot leave the directory.
func (s *FileStore) keyToFilePath(key string) string {
	return filepath.Join(s.directory, url.QueryEscape(key)+cacheFileExtension)
}
