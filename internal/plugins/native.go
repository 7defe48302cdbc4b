//go:build (linux || darwin || freebsd) && cgo

package plugins

import (
	goplugin "plugin"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/jmgilman/go/errors"
)

// NativeExtension is the file extension of Go plugin shared objects.
const NativeExtension = ".so"

// NativeAvailable reports whether this build can open Go plugins.
const NativeAvailable = true

// NativeLoader opens shared objects built with -buildmode=plugin.
type NativeLoader struct{}

// NewNativeLoader returns a loader for Go plugins.
func NewNativeLoader() (*NativeLoader, error) {
	return &NativeLoader{}, nil
}

// Extension implements Loader.
func (NativeLoader) Extension() string {
	return NativeExtension
}

// Open implements Loader.
func (NativeLoader) Open(path string) (Library, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, cache.CodeIO, "failed to open shared object")
	}

	return &nativeLibrary{path: path, plugin: p}, nil
}

// Close implements Loader. The Go runtime cannot unload shared objects.
func (NativeLoader) Close() error {
	return nil
}

type nativeLibrary struct {
	path   string
	plugin *goplugin.Plugin
}

// Factory resolves CreatePlugin and DestroyPlugin. Both must be exported
// as functions, not variables.
func (l *nativeLibrary) Factory() (plugin.CreateFunc, plugin.DestroyFunc, error) {
	createSym, err := l.plugin.Lookup(plugin.CreateSymbol)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s: %s", l.path, plugin.CreateSymbol)
	}
	destroySym, err := l.plugin.Lookup(plugin.DestroySymbol)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s: %s", l.path, plugin.DestroySymbol)
	}

	create, ok := createSym.(func() plugin.Plugin)
	if !ok {
		return nil, nil, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s: %s has type %T", l.path, plugin.CreateSymbol, createSym)
	}
	destroy, ok := destroySym.(func(plugin.Plugin))
	if !ok {
		return nil, nil, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s: %s has type %T", l.path, plugin.DestroySymbol, destroySym)
	}

	return create, destroy, nil
}

// Close is a no-op; the shared object stays mapped for the life of the process.
func (l *nativeLibrary) Close() error {
	return nil
}
