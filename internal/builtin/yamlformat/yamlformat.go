// Package yamlformat is a static output-format plugin rendering YAML.
package yamlformat

import (
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"gopkg.in/yaml.v3"
)

// Name is the plugin name used for loading.
const Name = "yaml"

var _ = plugin.RegisterStatic(plugin.StaticEntry{
	Name:   Name,
	Create: New,
})

// Formatter renders fields as a flat YAML mapping.
type Formatter struct {
	ready bool
}

// New returns an uninitialized formatter.
func New() plugin.Plugin {
	return &Formatter{}
}

func (f *Formatter) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        Name,
		Version:     "1.0.0",
		Author:      "go_draconis",
		Description: "YAML document output",
		Kind:        plugin.KindOutputFormat,
	}
}

func (f *Formatter) Initialize(plugin.Cache) error {
	f.ready = true
	return nil
}

func (f *Formatter) Shutdown()     { f.ready = false }
func (f *Formatter) IsReady() bool { return f.ready }

func (f *Formatter) FormatNames() []string {
	return []string{"yaml", "yml"}
}

func (f *Formatter) FileExtension(string) string {
	return "yaml"
}

// FormatOutput marshals data; yaml.v3 emits map keys in sorted order.
func (f *Formatter) FormatOutput(format string, data map[string]string) (string, error) {
	if format != "yaml" && format != "yml" {
		return "", plugin.ErrUnsupportedFormat
	}
	if data == nil {
		data = map[string]string{}
	}

	out, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
