package output

import (
	"errors"
	"testing"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formatter struct {
	name  string
	names []string
	err   error
}

func (f *formatter) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: f.name, Kind: plugin.KindOutputFormat}
}
func (f *formatter) Initialize(plugin.Cache) error { return nil }
func (f *formatter) Shutdown()                     {}
func (f *formatter) IsReady() bool                 { return true }
func (f *formatter) FormatNames() []string         { return f.names }
func (f *formatter) FileExtension(string) string   { return f.name }

func (f *formatter) FormatOutput(format string, _ map[string]string) (string, error) {
	return f.name + ":" + format, f.err
}

// TestRender verifies formatter selection order and built-in fallbacks.
func TestRender(t *testing.T) {
	data := map[string]string{"os": "linux", "hostname": "box"}
	formatters := []plugin.OutputFormatter{
		&formatter{name: "first", names: []string{"xml", "json"}},
		&formatter{name: "second", names: []string{"xml"}},
	}

	tests := []struct {
		name     string
		format   string
		body     string
		renderer string
		ext      string
	}{
		{name: "first match wins", format: "xml", body: "first:xml", renderer: "first", ext: "first"},
		{name: "plugin overrides builtin", format: "json", body: "first:json", renderer: "first", ext: "first"},
		{name: "builtin text", format: "text", body: "hostname:  box\nos:        linux\n", renderer: "builtin", ext: "txt"},
		{name: "empty is text", format: "", body: "hostname:  box\nos:        linux\n", renderer: "builtin", ext: "txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Render(tt.format, data, formatters)
			require.NoError(t, err)
			assert.Equal(t, tt.body, res.Body)
			assert.Equal(t, tt.renderer, res.Renderer)
			assert.Equal(t, tt.ext, res.Extension)
		})
	}
}

// TestRenderBuiltinJSON verifies the json fallback without plugins.
func TestRenderBuiltinJSON(t *testing.T) {
	res, err := Render(FormatJSON, map[string]string{"b": "2", "a": "1"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1","b":"2"}`, res.Body)
	assert.Equal(t, "json", res.Extension)
}

// TestRenderErrors verifies unknown formats and formatter failures.
func TestRenderErrors(t *testing.T) {
	_, err := Render("toml", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	broken := &formatter{name: "broken", names: []string{"x"}, err: errors.New("boom")}
	_, err = Render("x", nil, []plugin.OutputFormatter{broken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

// TestNames verifies the advertised format list is sorted and unique.
func TestNames(t *testing.T) {
	names := Names([]plugin.OutputFormatter{
		&formatter{names: []string{"yaml", "json"}},
		&formatter{names: []string{"md"}},
	})
	assert.Equal(t, []string{"json", "md", "text", "yaml"}, names)
}
