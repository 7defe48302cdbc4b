package plugins

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// PluginRegistry tracks plugin search paths and the libraries found in them.
type PluginRegistry struct {
	extension   string
	searchPaths []string
	discovered  map[string]string
	mu          sync.RWMutex
}

// NewPluginRegistry creates a registry that discovers files with the given extension.
func NewPluginRegistry(extension string) *PluginRegistry {
	return &PluginRegistry{
		extension:  extension,
		discovered: make(map[string]string),
	}
}

// Extension returns the library file extension the registry matches.
func (pr *PluginRegistry) Extension() string {
	return pr.extension
}

// AddSearchPath appends path unless an equal path is already present.
// It reports whether the path was added.
func (pr *PluginRegistry) AddSearchPath(path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)

	pr.mu.Lock()
	defer pr.mu.Unlock()

	if slices.Contains(pr.searchPaths, path) {
		return false
	}
	pr.searchPaths = append(pr.searchPaths, path)
	log.Debug().Str("path", path).Msg("added plugin search path")

	return true
}

// SearchPaths returns a copy of the search paths in insertion order.
func (pr *PluginRegistry) SearchPaths() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return slices.Clone(pr.searchPaths)
}

// Scan rebuilds the discovery table and returns the number of plugins found.
// Missing or unreadable directories are skipped. When a name appears in more
// than one search path the earliest path wins.
func (pr *PluginRegistry) Scan() int {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	discovered := make(map[string]string)
	pr.discovered = discovered
	if pr.extension == "" {
		return 0
	}

	for _, dir := range pr.searchPaths {
		files, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Debug().Err(err).Str("path", dir).Msg("skipping plugin search path")
			}

			continue
		}

		for _, f := range files {
			if !f.Type().IsRegular() || filepath.Ext(f.Name()) != pr.extension {
				continue
			}

			name := strings.TrimSuffix(f.Name(), pr.extension)
			if prev, ok := discovered[name]; ok {
				log.Debug().
					Str("plugin", name).
					Str("kept", prev).
					Str("ignored", filepath.Join(dir, f.Name())).
					Msg("duplicate plugin name")

				continue
			}
			discovered[name] = filepath.Join(dir, f.Name())
		}
	}

	return len(discovered)
}

// Lookup returns the library path discovered for name.
func (pr *PluginRegistry) Lookup(name string) (string, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	path, ok := pr.discovered[name]

	return path, ok
}

// Discovered returns the discovered plugin names, sorted.
func (pr *PluginRegistry) Discovered() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	names := make([]string, 0, len(pr.discovered))
	for name := range pr.discovered {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// DefaultSearchPaths returns the OS-appropriate plugin directories followed
// by ./plugins in the working directory.
func DefaultSearchPaths() []string {
	var paths []string

	if runtime.GOOS == "windows" {
		for _, env := range []string{"LOCALAPPDATA", "APPDATA"} {
			if dir := os.Getenv(env); dir != "" {
				paths = append(paths, filepath.Join(dir, appName, "plugins"))
			}
		}
		if dir := os.Getenv("USERPROFILE"); dir != "" {
			paths = append(paths, filepath.Join(dir, ".config", appName, "plugins"))
		}
	} else {
		paths = append(paths,
			filepath.Join("/usr/local/lib", appName, "plugins"),
			filepath.Join("/usr/lib", appName, "plugins"),
		)
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".local", "lib", appName, "plugins"))
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "plugins"))
	}

	return paths
}

const appName = "go_draconis"
