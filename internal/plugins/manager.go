// Package plugins discovers, loads and dispatches go_draconis plugins.
package plugins

import (
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/logging"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// StaticPath is the Path recorded for statically linked plugins.
const StaticPath = "<static>"

// LoadedPlugin is the runtime record of one plugin.
type LoadedPlugin struct {
	ID          uuid.UUID
	Name        string
	Path        string
	Metadata    plugin.Metadata
	Instance    plugin.Plugin
	Static      bool
	Loaded      bool
	Initialized bool
	Ready       bool
	LastError   error

	handle *pluginHandle
}

type infoEntry struct {
	id       uuid.UUID
	provider plugin.InfoProvider
}

type formatEntry struct {
	id        uuid.UUID
	formatter plugin.OutputFormatter
}

// PluginManager owns every loaded plugin and the typed dispatch lists built from them.
type PluginManager struct {
	loader     Loader
	registry   *PluginRegistry
	static     *plugin.StaticRegistry
	plugins    map[string]*LoadedPlugin
	infos      []infoEntry
	formatters []formatEntry
	loads      singleflight.Group

	// generation is bumped by Shutdown; a load that started in an earlier
	// generation releases its instance instead of recording it.
	generation  uint64
	initialized bool
	disabled    bool
	mu          sync.RWMutex
}

// NewPluginManager returns a PluginManager that opens dynamic libraries with
// loader and resolves static plugins from static. A nil loader disables
// dynamic loading; a nil static registry selects the process-wide table.
func NewPluginManager(loader Loader, static *plugin.StaticRegistry) *PluginManager {
	if static == nil {
		static = plugin.Static()
	}

	ext := ""
	if loader != nil {
		ext = loader.Extension()
	}

	return &PluginManager{
		loader:   loader,
		registry: NewPluginRegistry(ext),
		static:   static,
		plugins:  make(map[string]*LoadedPlugin),
	}
}

// Initialize registers search paths, scans them and loads every auto-load
// plugin. Individual load failures are logged and skipped. Calling it again
// after success is a no-op.
func (pm *PluginManager) Initialize(cfg config.PluginsConfig, store *cache.Store) error {
	if pm.IsInitialized() {
		return nil
	}

	if !cfg.Enabled {
		log.Debug().Msg("plugin system disabled in configuration")
		pm.mu.Lock()
		pm.disabled = true
		pm.mu.Unlock()
		pm.setInitialized(true)

		return nil
	}

	for _, path := range cfg.SearchPaths {
		pm.registry.AddSearchPath(path)
	}
	for _, path := range DefaultSearchPaths() {
		pm.registry.AddSearchPath(path)
	}
	found := pm.registry.Scan()

	for _, name := range pm.expandAutoLoad(cfg.AutoLoad) {
		log.Debug().Str("plugin", name).Msg("auto-loading plugin")
		if err := pm.LoadPlugin(name, store); err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("failed to auto-load plugin")
		}
	}

	pm.setInitialized(true)
	log.Debug().
		Int("discovered", found).
		Int("loaded", len(pm.ListLoadedPlugins())).
		Msg("plugin manager initialized")

	return nil
}

// expandAutoLoad resolves glob patterns against static and discovered names.
// Plain names pass through unchanged so a missing plugin still reports an error.
func (pm *PluginManager) expandAutoLoad(entries []string) []string {
	candidates := append(pm.static.Names(), pm.registry.Discovered()...)
	seen := make(map[string]bool)
	var names []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.ContainsAny(entry, "*?[{") {
			add(entry)
			continue
		}

		g, err := glob.Compile(entry)
		if err != nil {
			log.Warn().Err(err).Str("pattern", entry).Msg("invalid auto-load pattern")
			continue
		}
		matched := false
		for _, name := range candidates {
			if g.Match(name) {
				add(name)
				matched = true
			}
		}
		if !matched {
			log.Debug().Str("pattern", entry).Msg("auto-load pattern matched no plugins")
		}
	}

	return names
}

// LoadPlugin loads and initializes name. Loading an already loaded plugin is
// a no-op. A plugin whose Initialize fails stays recorded with LastError set
// and is not dispatched; the initialization error is returned. When the
// plugin system was initialized as disabled, ErrDisabled is returned.
func (pm *PluginManager) LoadPlugin(name string, store *cache.Store) error {
	pm.mu.RLock()
	disabled := pm.disabled
	pm.mu.RUnlock()
	if disabled {
		return errors.Wrapf(ErrDisabled, errors.CodeUnavailable, "plugin %q", name)
	}

	if pm.IsPluginLoaded(name) {
		log.Debug().Str("plugin", name).Msg("plugin already loaded")
		return nil
	}

	_, err, _ := pm.loads.Do(name, func() (any, error) {
		return nil, pm.load(name, store)
	})

	return err
}

func (pm *PluginManager) load(name string, store *cache.Store) error {
	pm.mu.RLock()
	_, loaded := pm.plugins[name]
	gen := pm.generation
	pm.mu.RUnlock()
	if loaded {
		return nil
	}

	handle, path, err := pm.open(name)
	if err != nil {
		return err
	}

	inst := handle.instance
	meta := inst.Metadata()
	if meta.Name == "" {
		meta.Name = name
	}
	if _, verr := semver.NewVersion(meta.Version); verr != nil {
		log.Warn().Str("plugin", name).Str("version", meta.Version).Msg("plugin version is not valid semver")
	}

	rec := &LoadedPlugin{
		ID:       uuid.New(),
		Name:     name,
		Path:     path,
		Metadata: meta,
		Instance: inst,
		Static:   handle.lib == nil,
		Loaded:   true,
		handle:   handle,
	}

	initErr := inst.Initialize(NewCacheBridge(store))
	if initErr == nil {
		rec.Initialized = true
		rec.Ready = inst.IsReady()
	} else {
		rec.LastError = initErr
	}

	pm.mu.Lock()
	if pm.generation != gen {
		pm.mu.Unlock()
		handle.release(name, rec.Ready)
		logging.LogPluginEvent("plugin_load_abandoned", name, ErrShutdown)

		return errors.Wrapf(ErrShutdown, errors.CodeUnavailable, "plugin %q", name)
	}
	pm.plugins[name] = rec
	if rec.Ready {
		pm.dispatchLocked(rec)
	}
	pm.mu.Unlock()

	if initErr != nil {
		logging.LogPluginEvent("plugin_initialize", name, initErr)

		return errors.Wrapf(initErr, errors.CodeExecutionFailed, "plugin %q failed to initialize", name)
	}

	log.Info().
		Str("plugin", name).
		Str("version", meta.Version).
		Str("kind", meta.Kind.String()).
		Bool("static", rec.Static).
		Bool("ready", rec.Ready).
		Msg("loaded plugin")

	return nil
}

// open constructs an instance of name from the static table or a discovered library.
func (pm *PluginManager) open(name string) (*pluginHandle, string, error) {
	if pm.static.IsStatic(name) {
		inst := pm.static.Create(name)
		if inst == nil {
			return nil, "", errors.Wrapf(ErrNullInstance, CodeABI, "static plugin %q", name)
		}

		return &pluginHandle{
			instance: inst,
			destroy: func(p plugin.Plugin) {
				pm.static.Destroy(name, p)
			},
		}, StaticPath, nil
	}

	path, ok := pm.registry.Lookup(name)
	if !ok || pm.loader == nil {
		return nil, "", errors.Wrapf(ErrPluginNotFound, errors.CodeNotFound, "plugin %q", name)
	}

	log.Debug().Str("plugin", name).Str("path", path).Msg("opening plugin library")
	lib, err := pm.loader.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, errors.GetCode(err), "failed to open plugin %q", name)
	}

	create, destroy, err := lib.Factory()
	if err != nil {
		closeLibrary(name, lib)
		return nil, "", errors.Wrapf(err, errors.GetCode(err), "plugin %q", name)
	}

	inst := create()
	if inst == nil {
		closeLibrary(name, lib)
		return nil, "", errors.Wrapf(ErrNullInstance, CodeABI, "plugin %q", name)
	}

	return &pluginHandle{instance: inst, destroy: destroy, lib: lib}, path, nil
}

func closeLibrary(name string, lib Library) {
	if err := lib.Close(); err != nil {
		log.Warn().Err(err).Str("plugin", name).Msg("failed to close plugin library")
	}
}

// dispatchLocked appends rec to the list matching its declared kind.
func (pm *PluginManager) dispatchLocked(rec *LoadedPlugin) {
	switch rec.Metadata.Kind {
	case plugin.KindInfoProvider:
		if p, ok := rec.Instance.(plugin.InfoProvider); ok {
			pm.infos = append(pm.infos, infoEntry{id: rec.ID, provider: p})
			return
		}
	case plugin.KindOutputFormat:
		if f, ok := rec.Instance.(plugin.OutputFormatter); ok {
			pm.formatters = append(pm.formatters, formatEntry{id: rec.ID, formatter: f})
			return
		}
	}

	log.Warn().
		Str("plugin", rec.Name).
		Str("kind", rec.Metadata.Kind.String()).
		Msg("plugin does not implement its declared kind, not dispatched")
}

// UnloadPlugin shuts down, destroys and closes name. It returns
// ErrNotLoaded if name is not loaded.
func (pm *PluginManager) UnloadPlugin(name string) error {
	pm.mu.Lock()
	rec, ok := pm.plugins[name]
	if !ok {
		pm.mu.Unlock()
		return errors.Wrapf(ErrNotLoaded, errors.CodeNotFound, "plugin %q", name)
	}
	delete(pm.plugins, name)
	pm.infos = removeByID(pm.infos, rec.ID, func(e infoEntry) uuid.UUID { return e.id })
	pm.formatters = removeByID(pm.formatters, rec.ID, func(e formatEntry) uuid.UUID { return e.id })
	pm.mu.Unlock()

	rec.handle.release(name, rec.Ready)
	logging.LogPluginEvent("plugin_unload", name, nil)

	return nil
}

func removeByID[E any](list []E, id uuid.UUID, key func(E) uuid.UUID) []E {
	out := list[:0:0]
	for _, e := range list {
		if key(e) != id {
			out = append(out, e)
		}
	}

	return out
}

// Shutdown unloads every plugin and resets the manager. Loads still in
// flight when it starts are released rather than recorded. It is safe to
// call repeatedly.
func (pm *PluginManager) Shutdown() {
	pm.mu.Lock()
	pm.generation++
	recs := make([]*LoadedPlugin, 0, len(pm.plugins))
	for _, rec := range pm.plugins {
		recs = append(recs, rec)
	}
	pm.plugins = make(map[string]*LoadedPlugin)
	pm.infos = nil
	pm.formatters = nil
	pm.initialized = false
	pm.disabled = false
	pm.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	for _, rec := range recs {
		rec.handle.release(rec.Name, rec.Ready)
		logging.LogPluginEvent("plugin_unload", rec.Name, nil)
	}
}

// Close shuts the manager down and releases the loader.
func (pm *PluginManager) Close() error {
	pm.Shutdown()
	if pm.loader == nil {
		return nil
	}

	return pm.loader.Close()
}

// GetPlugin returns a snapshot of the record for name.
func (pm *PluginManager) GetPlugin(name string) (LoadedPlugin, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	rec, ok := pm.plugins[name]
	if !ok {
		return LoadedPlugin{}, false
	}

	return *rec, true
}

// ListLoadedPlugins returns the metadata of loaded plugins sorted by name.
func (pm *PluginManager) ListLoadedPlugins() []plugin.Metadata {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]plugin.Metadata, 0, len(pm.plugins))
	for _, rec := range pm.plugins {
		if rec.Loaded {
			out = append(out, rec.Metadata)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Records returns snapshots of every plugin record sorted by name.
func (pm *PluginManager) Records() []LoadedPlugin {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]LoadedPlugin, 0, len(pm.plugins))
	for _, rec := range pm.plugins {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// ListDiscoveredPlugins returns the names found by the last scan, sorted.
func (pm *PluginManager) ListDiscoveredPlugins() []string {
	return pm.registry.Discovered()
}

// ListStaticPlugins returns the names of statically linked plugins, sorted.
func (pm *PluginManager) ListStaticPlugins() []string {
	return pm.static.Names()
}

// IsPluginLoaded reports whether name is loaded.
func (pm *PluginManager) IsPluginLoaded(name string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	rec, ok := pm.plugins[name]

	return ok && rec.Loaded
}

// InfoProviders returns the ready info-provider plugins in load order.
func (pm *PluginManager) InfoProviders() []plugin.InfoProvider {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]plugin.InfoProvider, len(pm.infos))
	for i, e := range pm.infos {
		out[i] = e.provider
	}

	return out
}

// OutputFormatters returns the ready output-format plugins in load order.
func (pm *PluginManager) OutputFormatters() []plugin.OutputFormatter {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]plugin.OutputFormatter, len(pm.formatters))
	for i, e := range pm.formatters {
		out[i] = e.formatter
	}

	return out
}

// AddSearchPath adds a directory to scan for dynamic plugins.
func (pm *PluginManager) AddSearchPath(path string) bool {
	return pm.registry.AddSearchPath(path)
}

// SearchPaths returns the configured search paths.
func (pm *PluginManager) SearchPaths() []string {
	return pm.registry.SearchPaths()
}

// ScanForPlugins rescans the search paths and returns the number of plugins found.
func (pm *PluginManager) ScanForPlugins() int {
	return pm.registry.Scan()
}

// IsInitialized reports whether Initialize has completed.
func (pm *PluginManager) IsInitialized() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.initialized
}

func (pm *PluginManager) setInitialized(v bool) {
	pm.mu.Lock()
	pm.initialized = v
	pm.mu.Unlock()
}
