// Package markdown is a static output-format plugin rendering a Markdown table.
package markdown

import (
	"sort"
	"strings"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
)

// Name is the plugin name used for loading.
const Name = "markdown"

var _ = plugin.RegisterStatic(plugin.StaticEntry{
	Name:   Name,
	Create: New,
})

// Formatter renders fields as a two-column Markdown table.
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
		Description: "Markdown table output",
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
	return []string{"markdown", "md"}
}

func (f *Formatter) FileExtension(string) string {
	return "md"
}

func (f *Formatter) FormatOutput(format string, data map[string]string) (string, error) {
	if format != "markdown" && format != "md" {
		return "", plugin.ErrUnsupportedFormat
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, k := range keys {
		b.WriteString("| ")
		b.WriteString(escape(k))
		b.WriteString(" | ")
		b.WriteString(escape(data[k]))
		b.WriteString(" |\n")
	}

	return b.String(), nil
}

// escape keeps cell content from breaking the table layout.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}
