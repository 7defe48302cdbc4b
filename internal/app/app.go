// Package app builds the explicit application context shared by every command:
// configuration, the cache store and the plugin manager.
package app

import (
	"context"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/internal/config"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
)

// Context holds the long-lived components of one go_draconis process.
type Context struct {
	Config  config.Config
	Store   *cache.Store
	Plugins *plugins.PluginManager
}

// Option customizes New.
type Option func(*options)

type options struct {
	static     *plugin.StaticRegistry
	loader     plugins.Loader
	skipLoader bool
}

// WithStaticRegistry resolves static plugins from r instead of the process table.
func WithStaticRegistry(r *plugin.StaticRegistry) Option {
	return func(o *options) {
		o.static = r
	}
}

// WithLoader uses l instead of the loader named in the configuration.
// A nil l disables dynamic plugins.
func WithLoader(l plugins.Loader) Option {
	return func(o *options) {
		o.loader = l
		o.skipLoader = true
	}
}

// NewStore builds a cache store from cfg. The global policy uses cfg.TTL for
// the file-backed locations; memory entries never expire.
func NewStore(cfg config.CacheConfig) (*cache.Store, error) {
	loc, err := cache.ParseLocation(cfg.Location)
	if err != nil {
		return nil, err
	}

	var policy cache.Policy
	switch loc {
	case cache.LocationMemory:
		policy = cache.InMemory()
	case cache.LocationTemp:
		policy = cache.Policy{Location: cache.LocationTemp, TTL: cfg.TTL}
	default:
		policy = cache.Persistent(cfg.TTL)
	}

	opts := []cache.Option{
		cache.WithPolicy(policy),
		cache.WithIgnoreCache(cfg.Ignore),
	}
	if cfg.Dir != "" {
		opts = append(opts, cache.WithPersistentDir(cfg.Dir))
	}

	return cache.NewStore(opts...), nil
}

// New builds the context and initializes the plugin system. A loader that
// cannot be created downgrades to static plugins only.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := NewStore(cfg.Cache)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "invalid cache configuration")
	}

	loader := o.loader
	if !o.skipLoader && cfg.Plugins.Enabled {
		l, lerr := plugins.NewLoader(ctx, cfg.Plugins.Loader)
		if lerr != nil {
			log.Warn().Err(lerr).Str("loader", cfg.Plugins.Loader).Msg("dynamic plugins unavailable")
		} else {
			loader = l
		}
	}

	pm := plugins.NewPluginManager(loader, o.static)
	if err := pm.Initialize(cfg.Plugins, store); err != nil {
		_ = pm.Close()
		return nil, err
	}

	return &Context{Config: cfg, Store: store, Plugins: pm}, nil
}

// Close unloads every plugin and releases the loader.
func (c *Context) Close() error {
	return c.Plugins.Close()
}
