package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	pluginapi "github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/spf13/cobra"
)

var (
	pluginDesc    string
	pluginVersion string
	pluginAuthor  string
	pluginKind    string
	pluginDir     string
	pluginBuild   bool
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Scaffold a new WASM plugin",
		Long: `Scaffold a new WASM plugin. This will:
1. Create the plugin implementation with a test
2. Create the exported ABI wrappers
3. Optionally build NAME.wasm with tinygo`,
		Args: cobra.ExactArgs(1),
		RunE: runCreatePlugin,
	}

	// Add flags.
	cmd.Flags().StringVarP(&pluginDesc, "desc", "d", "", "Plugin description")
	cmd.Flags().StringVarP(&pluginVersion, "version", "v", "0.1.0", "Plugin version")
	cmd.Flags().StringVarP(&pluginAuthor, "author", "a", "go_draconis", "Plugin author")
	cmd.Flags().StringVarP(&pluginKind, "kind", "k", "info", "Plugin kind (info, format)")
	cmd.Flags().StringVar(&pluginDir, "dir", "commands", "Parent directory of the new plugin")
	cmd.Flags().BoolVar(&pluginBuild, "build", false, "Build the plugin with tinygo after scaffolding")

	return cmd
}

type scaffold struct {
	Name        string
	Type        string
	Version     string
	Author      string
	Description string
	Format      bool
}

func runCreatePlugin(cmd *cobra.Command, args []string) error {
	name := strings.ToLower(args[0])
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid plugin name %q: use lowercase letters, digits, '-' and '_'", args[0])
	}
	kind, ok := pluginapi.ParseKind(pluginKind)
	if !ok {
		return fmt.Errorf("unknown plugin kind %q", pluginKind)
	}

	data := scaffold{
		Name:        name,
		Type:        typeName(name),
		Version:     pluginVersion,
		Author:      pluginAuthor,
		Description: pluginDesc,
		Format:      kind == pluginapi.KindOutputFormat,
	}
	if data.Description == "" {
		data.Description = name + " plugin"
	}

	dir := filepath.Join(pluginDir, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("plugin directory %s already exists", dir)
	}

	if err := writeScaffold(dir, data); err != nil {
		return err
	}
	cmd.Printf("Created plugin %s in %s\n", name, dir)

	if !pluginBuild {
		return nil
	}

	out := filepath.Join("plugins", name+".wasm")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := runTinyGo(out, "./"+filepath.ToSlash(dir)); err != nil {
		return fmt.Errorf("failed to build plugin: %w", err)
	}
	cmd.Printf("Successfully built %s\n", out)

	return nil
}

// writeScaffold renders every template into dir.
func writeScaffold(dir string, data scaffold) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	for file, tmpl := range scaffoldFiles {
		f, err := os.Create(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file, err)
		}
		err = tmpl.Execute(f, data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}

	return nil
}

// typeName turns a plugin name into an exported Go identifier.
func typeName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}

	return strings.Join(parts, "") + "Plugin"
}

func runTinyGo(out, pkg string) error {
	buildCmd := exec.Command("tinygo", "build", "-o", out, "-target=wasip1", "-buildmode=c-shared", pkg)
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr

	return buildCmd.Run()
}

var scaffoldFiles = map[string]*template.Template{
	"plugin.go":      template.Must(template.New("plugin").Parse(pluginTemplate)),
	"plugin_test.go": template.Must(template.New("test").Parse(testTemplate)),
	"exports.go":     template.Must(template.New("exports").Parse(exportsTemplate)),
}

const pluginTemplate = `// Command {{.Name}} is a go_draconis WASM plugin.
package main

import "github.com/andrei-cloud/go_draconis/pkg/plugin"

type {{.Type}} struct {
	cache plugin.Cache
}

func newPlugin() plugin.Plugin {
	return &{{.Type}}{}
}

func (p *{{.Type}}) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "{{.Name}}",
		Version:     "{{.Version}}",
		Author:      "{{.Author}}",
		Description: "{{.Description}}",
{{- if .Format}}
		Kind:        plugin.KindOutputFormat,
{{- else}}
		Kind:        plugin.KindInfoProvider,
{{- end}}
	}
}

func (p *{{.Type}}) Initialize(c plugin.Cache) error {
	p.cache = c
	return nil
}

func (p *{{.Type}}) Shutdown()     { p.cache = nil }
func (p *{{.Type}}) IsReady() bool { return p.cache != nil }
{{if .Format}}
func (p *{{.Type}}) FormatNames() []string { return []string{"{{.Name}}"} }

func (p *{{.Type}}) FileExtension(string) string { return "txt" }

func (p *{{.Type}}) FormatOutput(format string, data map[string]string) (string, error) {
	if format != "{{.Name}}" {
		return "", plugin.ErrUnsupportedFormat
	}

	out := ""
	for k, v := range data {
		out += k + "=" + v + "\n"
	}

	return out, nil
}
{{else}}
func (p *{{.Type}}) FieldNames() []string { return []string{"{{.Name}}"} }

func (p *{{.Type}}) CollectInfo(plugin.Cache) (map[string]string, error) {
	return map[string]string{"{{.Name}}": "ok"}, nil
}
{{end}}
func main() {}
`

const testTemplate = `package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache map[string]string

func (m memCache) Get(key string) (string, bool) { v, ok := m[key]; return v, ok }
func (m memCache) Set(key, value string, _ uint32) { m[key] = value }

func TestLifecycle(t *testing.T) {
	p := newPlugin()
	require.NoError(t, p.Initialize(memCache{}))
	assert.True(t, p.IsReady())
	assert.Equal(t, "{{.Name}}", p.Metadata().Name)

	p.Shutdown()
	assert.False(t, p.IsReady())
}
`

const exportsTemplate = `//go:build wasip1

package main

import "github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"

func init() {
	wasmguest.SetFactory(newPlugin, nil)
}

//export CreatePlugin
func CreatePlugin() uint32 { return wasmguest.Create() }

//export DestroyPlugin
func DestroyPlugin(h uint32) { wasmguest.Destroy(h) }

//export Alloc
func Alloc(size uint32) uint32 { return wasmguest.Alloc(size) }

//export Free
func Free(ptr uint32) { wasmguest.Free(ptr) }

//export plugin_metadata
func pluginMetadata(h uint32) uint64 { return wasmguest.Metadata(h) }

//export plugin_initialize
func pluginInitialize(h uint32) uint64 { return wasmguest.Initialize(h) }

//export plugin_is_ready
func pluginIsReady(h uint32) uint32 { return wasmguest.IsReady(h) }

//export plugin_shutdown
func pluginShutdown(h uint32) { wasmguest.Shutdown(h) }
{{if .Format}}
//export plugin_format_output
func pluginFormatOutput(h, ptr, length uint32) uint64 { return wasmguest.FormatOutput(h, ptr, length) }

//export plugin_format_names
func pluginFormatNames(h uint32) uint64 { return wasmguest.FormatNames(h) }

//export plugin_file_extension
func pluginFileExtension(h, ptr, length uint32) uint64 { return wasmguest.FileExtension(h, ptr, length) }
{{else}}
//export plugin_collect_info
func pluginCollectInfo(h uint32) uint64 { return wasmguest.CollectInfo(h) }

//export plugin_field_names
func pluginFieldNames(h uint32) uint64 { return wasmguest.FieldNames(h) }
{{end}}`
