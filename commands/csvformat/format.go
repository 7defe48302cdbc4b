// Command csvformat is a sample WASM output-format plugin.
//
// Build with:
//
//	tinygo build -o csvformat.wasm -target=wasip1 -buildmode=c-shared ./commands/csvformat
package main

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
)

const formatName = "csv"

type csvFormat struct {
	cache   plugin.Cache
	renders int
}

func newCSVFormat() plugin.Plugin {
	return &csvFormat{}
}

func (f *csvFormat) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         "csvformat",
		Version:      "0.1.0",
		Author:       "go_draconis",
		Description:  "Renders system information as key,value CSV rows",
		Kind:         plugin.KindOutputFormat,
		Dependencies: plugin.Dependencies{RequiresCaching: true},
	}
}

func (f *csvFormat) Initialize(c plugin.Cache) error {
	f.cache = c
	if v, ok := c.Get("csvformat:renders"); ok {
		f.renders, _ = strconv.Atoi(v)
	}

	return nil
}

func (f *csvFormat) Shutdown() {
	f.cache = nil
}

func (f *csvFormat) IsReady() bool {
	return f.cache != nil
}

func (f *csvFormat) FormatOutput(format string, data map[string]string) (string, error) {
	if format != formatName {
		return "", plugin.ErrUnsupportedFormat
	}

	out, err := renderCSV(data)
	if err != nil {
		return "", err
	}

	f.renders++
	f.cache.Set("csvformat:renders", strconv.Itoa(f.renders), 0)

	return out, nil
}

func (f *csvFormat) FormatNames() []string {
	return []string{formatName}
}

func (f *csvFormat) FileExtension(string) string {
	return "csv"
}

// renderCSV writes a key,value header followed by one row per field in key order.
func renderCSV(data map[string]string) (string, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return "", err
	}
	for _, k := range keys {
		if err := w.Write([]string{k, data[k]}); err != nil {
			return "", err
		}
	}
	w.Flush()

	return buf.String(), w.Error()
}

func main() {}
