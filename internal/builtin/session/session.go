// Package session is a static info-provider plugin reporting how often
// go_draconis has run and when it last ran. State lives in the plugin cache,
// so it survives across processes.
package session

import (
	"strconv"
	"time"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
)

// Name is the plugin name used for loading.
const Name = "session"

const (
	runsKey    = "session:runs"
	lastRunKey = "session:last_run"
)

var _ = plugin.RegisterStatic(plugin.StaticEntry{
	Name:   Name,
	Create: func() plugin.Plugin { return New(time.Now) },
})

// Provider counts runs. Each Initialize is one run.
type Provider struct {
	now     func() time.Time
	runs    int
	lastRun string
	ready   bool
}

// New returns a provider reading the time from now.
func New(now func() time.Time) *Provider {
	return &Provider{now: now}
}

func (p *Provider) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         Name,
		Version:      "1.0.0",
		Author:       "go_draconis",
		Description:  "Run counter and previous run time",
		Kind:         plugin.KindInfoProvider,
		Dependencies: plugin.Dependencies{RequiresCaching: true},
	}
}

// Initialize records this run and remembers the previous one.
func (p *Provider) Initialize(c plugin.Cache) error {
	if v, ok := c.Get(runsKey); ok {
		p.runs, _ = strconv.Atoi(v)
	}
	p.runs++
	p.lastRun, _ = c.Get(lastRunKey)

	c.Set(runsKey, strconv.Itoa(p.runs), 0)
	c.Set(lastRunKey, p.now().UTC().Format(time.RFC3339), 0)
	p.ready = true

	return nil
}

func (p *Provider) Shutdown()     { p.ready = false }
func (p *Provider) IsReady() bool { return p.ready }

func (p *Provider) FieldNames() []string {
	return []string{"runs", "last_run"}
}

func (p *Provider) CollectInfo(plugin.Cache) (map[string]string, error) {
	last := p.lastRun
	if last == "" {
		last = "never"
	}

	return map[string]string{
		"runs":     strconv.Itoa(p.runs),
		"last_run": last,
	}, nil
}
