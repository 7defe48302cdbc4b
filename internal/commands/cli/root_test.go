package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a config that keeps all state under a temp dir.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "plugins:\n  enabled: false\ncache:\n  location: persistent\n  dir: " + filepath.Join(dir, "cache") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	root, err := NewRootCommand()
	require.NoError(t, err)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err = root.Execute()

	return out.String(), err
}

// TestInfoJSON verifies info renders the built-in fields through the json fallback.
func TestInfoJSON(t *testing.T) {
	out, err := execute(t, "info", "--format", "json")
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.NotEmpty(t, fields["os"])
	assert.NotEmpty(t, fields["go_version"])
}

// TestInfoUnknownFormat verifies the error lists the available formats.
func TestInfoUnknownFormat(t *testing.T) {
	_, err := execute(t, "info", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: json, text")
}

// TestCacheGetMiss verifies cache get reports a missing key as an error.
func TestCacheGetMiss(t *testing.T) {
	_, err := execute(t, "cache", "get", "nothing:here")
	assert.Error(t, err)
}

// TestCacheClear verifies cache clear reports the removed file count.
func TestCacheClear(t *testing.T) {
	out, err := execute(t, "cache", "clear", "--disk")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")
}
