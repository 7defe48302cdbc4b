// Package sysinfo collects the host fields displayed by go_draconis and merges
// in the fields contributed by info-provider plugins.
package sysinfo

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/internal/plugins"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PluginPrefix is prepended to every key returned by an info provider.
const PluginPrefix = "plugin_"

// Field is one host-provided value. Cached fields go through the store's
// global policy; the rest are fetched on every collection.
type Field struct {
	Key    string
	Cached bool
	Fetch  func(ctx context.Context) (string, error)
}

// DefaultFields returns the built-in host fields.
func DefaultFields() []Field {
	return []Field{
		{Key: "hostname", Cached: true, Fetch: func(context.Context) (string, error) { return os.Hostname() }},
		{Key: "os", Fetch: constant(runtime.GOOS)},
		{Key: "arch", Fetch: constant(runtime.GOARCH)},
		{Key: "cpus", Fetch: constant(strconv.Itoa(runtime.NumCPU()))},
		{Key: "go_version", Fetch: constant(runtime.Version())},
		{Key: "user", Cached: true, Fetch: currentUser},
		{Key: "shell", Fetch: func(context.Context) (string, error) { return os.Getenv("SHELL"), nil }},
		{Key: "kernel", Cached: true, Fetch: procFile("/proc/sys/kernel/osrelease")},
		{Key: "uptime", Fetch: uptime},
	}
}

func constant(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return v, nil }
}

func currentUser(context.Context) (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}

	return u.Username, nil
}

func procFile(path string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(string(data)), nil
	}
}

func uptime(ctx context.Context) (string, error) {
	raw, err := procFile("/proc/uptime")(ctx)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", os.ErrNotExist
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", err
	}

	return (time.Duration(secs) * time.Second).String(), nil
}

// Collector gathers host and plugin fields.
type Collector struct {
	store  *cache.Store
	fields []Field
}

// NewCollector returns a collector over store. With no fields it uses DefaultFields.
func NewCollector(store *cache.Store, fields ...Field) *Collector {
	if len(fields) == 0 {
		fields = DefaultFields()
	}

	return &Collector{store: store, fields: fields}
}

// Collect runs every field and provider concurrently. Individual failures and
// empty values are logged and left out; only cancellation fails the call.
func (c *Collector) Collect(ctx context.Context, providers []plugin.InfoProvider) (map[string]string, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]string)
	)
	put := func(k, v string) {
		mu.Lock()
		out[k] = v
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, f := range c.fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := c.fetch(gctx, f)
			if err != nil {
				log.Debug().Err(err).Str("field", f.Key).Msg("field unavailable")
				return nil
			}
			if v != "" {
				put(f.Key, v)
			}

			return nil
		})
	}

	bridge := plugins.NewCacheBridge(c.store)
	for _, p := range providers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fields, err := p.CollectInfo(bridge)
			if err != nil {
				log.Warn().Err(err).Str("plugin", p.Metadata().Name).Msg("info provider failed")
				return nil
			}
			for k, v := range fields {
				put(PluginPrefix+k, v)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Collector) fetch(ctx context.Context, f Field) (string, error) {
	if !f.Cached {
		return f.Fetch(ctx)
	}

	return cache.GetOrSet(c.store, cache.NewKey[string]("sysinfo:"+f.Key), func() (string, error) {
		return f.Fetch(ctx)
	})
}
