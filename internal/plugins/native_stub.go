//go:build !((linux || darwin || freebsd) && cgo)

package plugins

import (
	"github.com/jmgilman/go/errors"
)

// NativeExtension is the file extension of Go plugin shared objects.
const NativeExtension = ".so"

// NativeAvailable reports whether this build can open Go plugins.
const NativeAvailable = false

// NativeLoader is unavailable on this platform or without cgo.
type NativeLoader struct{}

// NewNativeLoader always fails on this build.
func NewNativeLoader() (*NativeLoader, error) {
	return nil, errors.New(errors.CodeUnavailable, "native plugins require cgo on linux, darwin or freebsd")
}

// Extension implements Loader.
func (NativeLoader) Extension() string {
	return NativeExtension
}

// Open implements Loader.
func (NativeLoader) Open(string) (Library, error) {
	return nil, errors.New(errors.CodeUnavailable, "native plugins are not supported by this build")
}

// Close implements Loader.
func (NativeLoader) Close() error {
	return nil
}
