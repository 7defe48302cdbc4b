package plugins

import (
	"context"
	"strings"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
)

// Loader kinds accepted by NewLoader.
const (
	LoaderWasm   = "wasm"
	LoaderNative = "native"
)

// Loader opens dynamic plugin libraries of one format.
type Loader interface {
	// Extension is the file extension of libraries this loader opens, dot included.
	Extension() string
	// Open loads the library at path.
	Open(path string) (Library, error)
	// Close releases loader-wide resources. Libraries must be closed first.
	Close() error
}

// NewLoader returns the dynamic loader named by kind. An empty kind selects wasm.
func NewLoader(ctx context.Context, kind string) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", LoaderWasm:
		return NewWasmLoader(ctx), nil
	case LoaderNative:
		return NewNativeLoader()
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown plugin loader %q", kind)
	}
}

// Library is an opened dynamic plugin library.
type Library interface {
	// Factory resolves the exported create and destroy symbols.
	Factory() (plugin.CreateFunc, plugin.DestroyFunc, error)
	// Close unloads the library.
	Close() error
}

// pluginHandle owns a plugin instance together with the code that must stay
// resident to tear it down. lib is nil for static plugins.
type pluginHandle struct {
	instance plugin.Plugin
	destroy  plugin.DestroyFunc
	lib      Library
}

// release shuts the instance down if it was ready, destroys it and then
// closes the library. Destroying after close would run unmapped code.
func (h *pluginHandle) release(name string, ready bool) {
	if h.instance != nil {
		if ready {
			h.instance.Shutdown()
		}
		if h.destroy != nil {
			h.destroy(h.instance)
		}
		h.instance = nil
	}

	if h.lib != nil {
		if err := h.lib.Close(); err != nil {
			log.Warn().Err(err).Str("plugin", name).Msg("failed to close plugin library")
		}
		h.lib = nil
	}
}
