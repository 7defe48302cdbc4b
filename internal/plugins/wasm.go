package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andrei-cloud/go_draconis/internal/cache"
	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"
	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmExtension is the file extension of WASM plugin libraries.
const WasmExtension = ".wasm"

// requiredExports must be present for a module to be accepted as a plugin.
var requiredExports = []string{
	wasmguest.ExportCreate,
	wasmguest.ExportDestroy,
	wasmguest.ExportAlloc,
	wasmguest.ExportMetadata,
}

// WasmLoader opens WASM plugin modules in a shared wazero runtime.
type WasmLoader struct {
	//nolint:containedctx // Context is stored in the struct intentionally to allow reuse across plugin calls.
	ctx     context.Context
	runtime wazero.Runtime
	host    *HostFunctions
	once    sync.Once
	initErr error
}

// NewWasmLoader returns a loader whose runtime lives until Close.
func NewWasmLoader(ctx context.Context) *WasmLoader {
	return &WasmLoader{
		ctx:     ctx,
		runtime: wazero.NewRuntime(ctx),
		host:    NewHostFunctions(),
	}
}

// Extension implements Loader.
func (l *WasmLoader) Extension() string {
	return WasmExtension
}

func (l *WasmLoader) init() error {
	l.once.Do(func() {
		if _, err := wasi_snapshot_preview1.Instantiate(l.ctx, l.runtime); err != nil {
			l.initErr = errors.Wrap(err, errors.CodeInternal, "failed to instantiate WASI")
			return
		}
		l.initErr = l.host.Register(l.ctx, l.runtime)
	})

	return l.initErr
}

// Open compiles and instantiates the module at path. Start functions are not
// run; a reactor's _initialize export is called if present.
func (l *WasmLoader) Open(path string) (Library, error) {
	if err := l.init(); err != nil {
		return nil, err
	}

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, cache.CodeIO, "failed to read plugin file")
	}

	compiled, err := l.runtime.CompileModule(l.ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(err, CodeABI, "failed to compile plugin module")
	}

	stem := strings.TrimSuffix(filepath.Base(path), WasmExtension)
	cfg := wazero.NewModuleConfig().
		WithName(stem + "-" + uuid.NewString()).
		WithStartFunctions()

	module, err := l.runtime.InstantiateModule(l.ctx, compiled, cfg)
	if err != nil {
		return nil, errors.Wrap(err, CodeABI, "failed to instantiate plugin module")
	}

	for _, name := range requiredExports {
		if module.ExportedFunction(name) == nil {
			_ = module.Close(l.ctx)
			return nil, errors.WithContext(
				errors.Wrapf(ErrMissingSymbol, CodeABI, "%s does not export %s", filepath.Base(path), name),
				"symbol", name,
			)
		}
	}

	if start := module.ExportedFunction("_initialize"); start != nil {
		if _, err := start.Call(l.ctx); err != nil {
			_ = module.Close(l.ctx)
			return nil, errors.Wrap(err, CodeABI, "plugin _initialize failed")
		}
	}

	log.Debug().Str("module", module.Name()).Str("path", path).Msg("instantiated wasm plugin")

	return &wasmLibrary{loader: l, module: module}, nil
}

// Close releases the runtime and every module still instantiated in it.
func (l *WasmLoader) Close() error {
	return l.runtime.Close(l.ctx)
}

// wasmLibrary is one instantiated plugin module. Calls into the module are serialized.
type wasmLibrary struct {
	loader *WasmLoader
	module api.Module
	mu     sync.Mutex
}

// Factory implements Library.
func (w *wasmLibrary) Factory() (plugin.CreateFunc, plugin.DestroyFunc, error) {
	create := func() plugin.Plugin {
		p, err := w.create()
		if err != nil {
			log.Warn().Err(err).Str("module", w.module.Name()).Msg("wasm plugin creation failed")
			return nil
		}

		return p
	}

	destroy := func(p plugin.Plugin) {
		base := baseOf(p)
		if base == nil {
			return
		}
		if _, err := w.callRaw(wasmguest.ExportDestroy, uint64(base.handle)); err != nil {
			log.Warn().Err(err).Str("module", w.module.Name()).Msg("wasm DestroyPlugin failed")
		}
		w.loader.host.Unbind(w.module.Name())
	}

	return create, destroy, nil
}

// Close implements Library.
func (w *wasmLibrary) Close() error {
	w.loader.host.Unbind(w.module.Name())

	return w.module.Close(w.loader.ctx)
}

func (w *wasmLibrary) create() (plugin.Plugin, error) {
	res, err := w.callRaw(wasmguest.ExportCreate)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || api.DecodeU32(res[0]) == 0 {
		return nil, ErrNullInstance
	}

	base := &wasmPlugin{lib: w, handle: api.DecodeU32(res[0])}
	if err := w.call(wasmguest.ExportMetadata, &base.meta, uint64(base.handle)); err != nil {
		_, _ = w.callRaw(wasmguest.ExportDestroy, uint64(base.handle))
		return nil, err
	}

	switch base.meta.Kind {
	case plugin.KindInfoProvider:
		return &wasmInfoPlugin{base}, nil
	case plugin.KindOutputFormat:
		return &wasmFormatPlugin{base}, nil
	default:
		return base, nil
	}
}

// callRaw invokes an export and returns its raw results.
func (w *wasmLibrary) callRaw(name string, params ...uint64) ([]uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fn := w.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s", name)
	}

	res, err := fn.Call(w.loader.ctx, params...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeExecutionFailed, "%s failed", name)
	}

	return res, nil
}

// call invokes an export returning a packed Response and decodes its value into out.
func (w *wasmLibrary) call(name string, out any, params ...uint64) error {
	res, err := w.callRaw(name, params...)
	if err != nil {
		return err
	}
	if len(res) == 0 {
		return errors.Newf(CodeABI, "%s returned no result", name)
	}

	w.mu.Lock()
	data, err := ReadResult(w.loader.ctx, w.module, res[0])
	w.mu.Unlock()
	if err != nil {
		return err
	}

	return decodeResponse(data, out)
}

// callWithInput copies input into guest memory and calls name(handle, ptr, len).
func (w *wasmLibrary) callWithInput(name string, handle uint32, input []byte, out any) error {
	w.mu.Lock()
	ptr, err := AllocBuffer(w.loader.ctx, w.module, input)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	return w.call(name, out, uint64(handle), uint64(ptr), uint64(len(input)))
}
