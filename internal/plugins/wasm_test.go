package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is the smallest valid WASM binary: magic and version, no sections.
var emptyModule = []byte("\x00asm\x01\x00\x00\x00")

func newWasmLoader(t *testing.T) *WasmLoader {
	t.Helper()

	l := NewWasmLoader(context.Background())
	t.Cleanup(func() { _ = l.Close() })

	return l
}

// TestWasmLoaderExtension verifies the loader scans for .wasm files.
func TestWasmLoaderExtension(t *testing.T) {
	l := newWasmLoader(t)
	assert.Equal(t, ".wasm", l.Extension())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uptime.wasm"), emptyModule, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uptime.so"), []byte("elf"), 0o644))

	reg := NewPluginRegistry(l.Extension())
	reg.AddSearchPath(dir)
	assert.Equal(t, 1, reg.Scan())
}

// TestWasmLoaderMissingExports verifies a module without the plugin ABI is rejected.
func TestWasmLoaderMissingExports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wasm")
	require.NoError(t, os.WriteFile(path, emptyModule, 0o644))

	_, err := newWasmLoader(t).Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSymbol))
	assert.Equal(t, CodeABI, errors.GetCode(err))
}

// TestWasmLoaderOpenErrors verifies unreadable and malformed files fail to open.
func TestWasmLoaderOpenErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wasm")
	require.NoError(t, os.WriteFile(garbage, []byte("not wasm"), 0o644))

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.wasm"), code: cache.CodeIO},
		{name: "malformed module", path: garbage, code: CodeABI},
	}

	l := newWasmLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Open(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

// TestWasmLoaderThroughManager verifies an ABI failure surfaces from LoadPlugin
// and leaves nothing loaded.
func TestWasmLoaderThroughManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.wasm"), emptyModule, 0o644))

	pm := NewPluginManager(newWasmLoader(t), plugin.NewStaticRegistry())
	pm.AddSearchPath(dir)
	require.Equal(t, 1, pm.ScanForPlugins())

	err := pm.LoadPlugin("empty", cache.NewStore(cache.WithPolicy(cache.InMemory())))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSymbol))
	assert.False(t, pm.IsPluginLoaded("empty"))
}

// copyFixture copies testdata/<name>.wasm into dir.
func copyFixture(t *testing.T, dir, name string) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name+WasmExtension))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+WasmExtension), data, 0o644))
}

func newFixtureStore(t *testing.T) *cache.Store {
	t.Helper()

	root := t.TempDir()

	return cache.NewStore(
		cache.WithTempDir(filepath.Join(root, "temp")),
		cache.WithPersistentDir(filepath.Join(root, "persistent")),
	)
}

// TestWasmPluginLifecycle verifies a real guest module loads, dispatches as a
// formatter, reaches the host cache and is shut down and destroyed on unload.
func TestWasmPluginLifecycle(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "echofmt")
	store := newFixtureStore(t)
	bridge := NewCacheBridge(store)

	pm := NewPluginManager(newWasmLoader(t), plugin.NewStaticRegistry())
	pm.AddSearchPath(dir)
	require.Equal(t, 1, pm.ScanForPlugins())

	// Each load is a fresh module instance; initialize reads and rewrites the run mark.
	for _, want := range []string{"1", "2"} {
		require.NoError(t, pm.LoadPlugin("echofmt", store))

		rec, ok := pm.GetPlugin("echofmt")
		require.True(t, ok)
		assert.True(t, rec.Initialized)
		assert.True(t, rec.Ready)
		assert.False(t, rec.Static)
		assert.Equal(t, filepath.Join(dir, "echofmt.wasm"), rec.Path)
		assert.Equal(t, "echofmt", rec.Metadata.Name)
		assert.Equal(t, "1.0.0", rec.Metadata.Version)
		assert.Equal(t, "go_draconis", rec.Metadata.Author)
		assert.Equal(t, plugin.KindOutputFormat, rec.Metadata.Kind)

		runs, ok := bridge.Get("echofmt:runs")
		require.True(t, ok)
		assert.Equal(t, want, runs)

		assert.Empty(t, pm.InfoProviders())
		formatters := pm.OutputFormatters()
		require.Len(t, formatters, 1)
		f := formatters[0]
		assert.Equal(t, []string{"echo"}, f.FormatNames())
		assert.Equal(t, "txt", f.FileExtension("echo"))

		out, err := f.FormatOutput("echo", map[string]string{"host": "box", "quote": `a"b\c`})
		require.NoError(t, err)
		assert.JSONEq(t, `{"format":"echo","data":{"host":"box","quote":"a\"b\\c"}}`, out)

		require.NoError(t, pm.UnloadPlugin("echofmt"))
		assert.False(t, pm.IsPluginLoaded("echofmt"))
		assert.Empty(t, pm.OutputFormatters())

		for _, key := range []string{"echofmt:shutdown", "echofmt:destroyed"} {
			v, ok := bridge.Get(key)
			require.True(t, ok, key)
			assert.Equal(t, "true", v)
			require.NoError(t, store.Invalidate(key))
		}
	}
}

// TestWasmCreateReturnsNull verifies a CreatePlugin result of 0 is an ABI error
// and nothing is recorded.
func TestWasmCreateReturnsNull(t *testing.T) {
	dir := t.TempDir()
	copyFixture(t, dir, "nullplugin")

	pm := NewPluginManager(newWasmLoader(t), plugin.NewStaticRegistry())
	pm.AddSearchPath(dir)
	require.Equal(t, 1, pm.ScanForPlugins())

	err := pm.LoadPlugin("nullplugin", newFixtureStore(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNullInstance))
	assert.Equal(t, CodeABI, errors.GetCode(err))
	assert.False(t, pm.IsPluginLoaded("nullplugin"))
	assert.Empty(t, pm.Records())
}

// TestMemoryAccessErrors verifies guest memory failures carry the ABI code.
func TestMemoryAccessErrors(t *testing.T) {
	_, err := readMemory(nil, 0, 4)
	assert.Equal(t, CodeABI, errors.GetCode(err))

	err = writeMemory(nil, 0, []byte("x"))
	assert.Equal(t, CodeABI, errors.GetCode(err))
}

// TestBaseOf verifies every proxy shape resolves to its handle owner.
func TestBaseOf(t *testing.T) {
	base := &wasmPlugin{handle: 7}

	assert.Same(t, base, baseOf(base))
	assert.Same(t, base, baseOf(&wasmInfoPlugin{base}))
	assert.Same(t, base, baseOf(&wasmFormatPlugin{base}))
	assert.Nil(t, baseOf(&fakePlugin{}))
}

// TestNewLoader verifies loader selection by configured kind.
func TestNewLoader(t *testing.T) {
	l, err := NewLoader(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, WasmExtension, l.Extension())
	require.NoError(t, l.Close())

	l, err = NewLoader(context.Background(), " WASM ")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = NewLoader(context.Background(), LoaderNative)
	if NativeAvailable {
		require.NoError(t, err)
		assert.Equal(t, NativeExtension, l.Extension())
	} else {
		assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
	}

	_, err = NewLoader(context.Background(), "lua")
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}
