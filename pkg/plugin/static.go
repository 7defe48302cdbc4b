package plugin

import (
	"sort"
	"sync"
)

// StaticEntry describes a plugin compiled into the host binary.
type StaticEntry struct {
	Name    string
	Create  CreateFunc
	Destroy DestroyFunc
}

// StaticRegistry is a name-indexed table of statically linked plugins.
type StaticRegistry struct {
	entries map[string]StaticEntry
	mu      sync.RWMutex
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		entries: make(map[string]StaticEntry),
	}
}

var defaultStatic = NewStaticRegistry()

// Static returns the process-wide registry populated by RegisterStatic.
func Static() *StaticRegistry {
	return defaultStatic
}

// RegisterStatic adds entry to the process-wide registry. Plugin packages call
// it from init so the entry exists before main runs.
func RegisterStatic(entry StaticEntry) bool {
	defaultStatic.Register(entry)

	return true
}

// Register adds or replaces an entry.
func (r *StaticRegistry) Register(entry StaticEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.Name] = entry
}

// IsStatic reports whether name is a registered static plugin.
func (r *StaticRegistry) IsStatic(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]

	return ok
}

// Lookup returns the entry registered for name.
func (r *StaticRegistry) Lookup(name string) (StaticEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]

	return entry, ok
}

// Create constructs an instance of the static plugin name.
// It returns nil if the name is unknown or the factory returned nil.
func (r *StaticRegistry) Create(name string) Plugin {
	entry, ok := r.Lookup(name)
	if !ok || entry.Create == nil {
		return nil
	}

	return entry.Create()
}

// Destroy releases p through the destroy function registered for name.
func (r *StaticRegistry) Destroy(name string, p Plugin) {
	if p == nil {
		return
	}

	entry, ok := r.Lookup(name)
	if !ok || entry.Destroy == nil {
		return
	}
	entry.Destroy(p)
}

// Names returns every registered name in sorted order.
func (r *StaticRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
