package plugins

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"
	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostFunctions provides the env module imported by WASM plugins. Cache calls
// are routed to the plugin.Cache bound to the calling module's name.
type HostFunctions struct {
	caches map[string]plugin.Cache
	mu     sync.RWMutex
}

// NewHostFunctions creates a host functions provider with no bindings.
func NewHostFunctions() *HostFunctions {
	return &HostFunctions{caches: make(map[string]plugin.Cache)}
}

// Register instantiates the env module in runtime.
func (h *HostFunctions) Register(ctx context.Context, runtime wazero.Runtime) error {
	builder := runtime.NewHostModuleBuilder(wasmguest.HostModule)

	builder.NewFunctionBuilder().
		WithFunc(h.logDebug).
		Export(wasmguest.ImportLog)

	builder.NewFunctionBuilder().
		WithFunc(h.cacheGet).
		Export(wasmguest.ImportGet)

	builder.NewFunctionBuilder().
		WithFunc(h.cacheSet).
		Export(wasmguest.ImportSet)

	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to instantiate host functions module")
	}

	return nil
}

// Bind routes cache calls from module to c.
func (h *HostFunctions) Bind(module string, c plugin.Cache) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.caches[module] = c
}

// Unbind removes the cache bound to module.
func (h *HostFunctions) Unbind(module string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.caches, module)
}

func (h *HostFunctions) cacheFor(mod api.Module) plugin.Cache {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.caches[mod.Name()]
}

// readMemory safely reads bytes from WASM module memory.
func readMemory(mod api.Module, ptr, size uint32) ([]byte, error) {
	if mod == nil {
		return nil, errors.New(CodeABI, "nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return nil, errors.New(CodeABI, "no memory exported")
	}

	data, ok := memory.Read(ptr, size)
	if !ok {
		return nil, errors.Newf(CodeABI, "failed to read memory at %d[%d]", ptr, size)
	}

	return data, nil
}

// writeMemory safely writes bytes to WASM module memory.
func writeMemory(mod api.Module, ptr uint32, data []byte) error {
	if mod == nil {
		return errors.New(CodeABI, "nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return errors.New(CodeABI, "no memory exported")
	}

	if !memory.Write(ptr, data) {
		return errors.Newf(CodeABI, "failed to write memory at %d[%d]", ptr, len(data))
	}

	return nil
}

func (h *HostFunctions) logDebug(_ context.Context, mod api.Module, ptr, size uint32) {
	data, err := readMemory(mod, ptr, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to read debug log message")
		return
	}

	log.Debug().
		Str("event", "plugin_debug").
		Str("module", mod.Name()).
		Msg(string(data))
}

// cacheGet returns the JSON-encoded value for the key at keyPtr, or 0 on a miss.
func (h *HostFunctions) cacheGet(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) uint64 {
	key, err := readMemory(mod, keyPtr, keyLen)
	if err != nil {
		log.Error().Err(err).Msg("failed to read cache key")
		return 0
	}

	c := h.cacheFor(mod)
	if c == nil {
		log.Debug().Str("module", mod.Name()).Msg("cache_get before a cache was bound")
		return 0
	}

	value, ok := c.Get(string(key))
	if !ok {
		return 0
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return 0
	}

	ptr, err := AllocBuffer(ctx, mod, encoded)
	if err != nil {
		log.Error().Err(err).Msg("failed to return cache value to plugin")
		return 0
	}

	return wasmguest.PackResult(ptr, uint32(len(encoded)))
}

func (h *HostFunctions) cacheSet(
	_ context.Context,
	mod api.Module,
	keyPtr, keyLen, valPtr, valLen, ttl uint32,
) {
	key, err := readMemory(mod, keyPtr, keyLen)
	if err != nil {
		log.Error().Err(err).Msg("failed to read cache key")
		return
	}
	value, err := readMemory(mod, valPtr, valLen)
	if err != nil {
		log.Error().Err(err).Msg("failed to read cache value")
		return
	}

	c := h.cacheFor(mod)
	if c == nil {
		log.Debug().Str("module", mod.Name()).Msg("cache_set before a cache was bound")
		return
	}
	c.Set(string(key), string(value), ttl)
}
