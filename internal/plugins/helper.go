package plugins

import (
	"context"
	"encoding/json"

	"github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"
	"github.com/jmgilman/go/errors"
	"github.com/tetratelabs/wazero/api"
)

// AllocBuffer allocates guest memory via the module's Alloc export and writes
// data into it, returning the guest address.
func AllocBuffer(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}

	alloc := mod.ExportedFunction(wasmguest.ExportAlloc)
	if alloc == nil {
		return 0, errors.Wrapf(ErrMissingSymbol, CodeABI, "%s", wasmguest.ExportAlloc)
	}

	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeExecutionFailed, "alloc failed")
	}
	if len(results) < 1 {
		return 0, errors.New(CodeABI, "alloc returned no results")
	}

	ptr := api.DecodeU32(results[0])
	if err := writeMemory(mod, ptr, data); err != nil {
		return 0, err
	}

	return ptr, nil
}

// ReadResult reads a packed pointer/length result out of guest memory and
// releases the guest buffer when the module exports Free.
func ReadResult(ctx context.Context, mod api.Module, packed uint64) ([]byte, error) {
	ptr, length := wasmguest.UnpackResult(packed)
	if length == 0 {
		return nil, nil
	}

	data, err := readMemory(mod, ptr, length)
	if err != nil {
		return nil, err
	}
	// Read returns a view; copy before the guest reuses the buffer.
	out := append([]byte(nil), data...)

	if free := mod.ExportedFunction(wasmguest.ExportFree); free != nil {
		if _, err := free.Call(ctx, uint64(ptr)); err != nil {
			return nil, errors.Wrap(err, errors.CodeExecutionFailed, "free failed")
		}
	}

	return out, nil
}

// decodeResponse unpacks a Response envelope into out.
func decodeResponse(data []byte, out any) error {
	if len(data) == 0 {
		return errors.New(CodeABI, "empty plugin response")
	}

	var resp wasmguest.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return errors.Wrap(err, CodeABI, "malformed plugin response")
	}
	if resp.Error != "" {
		return errors.New(errors.CodeExecutionFailed, resp.Error)
	}
	if out == nil || len(resp.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Value, out); err != nil {
		return errors.Wrap(err, CodeABI, "unexpected plugin response value")
	}

	return nil
}
