package wasmguest

import (
	"encoding/json"
	"fmt"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
)

var (
	factory    plugin.CreateFunc
	destroyer  plugin.DestroyFunc
	instances  = map[uint32]plugin.Plugin{}
	nextHandle uint32
)

// SetFactory installs the constructor used by Create and the destructor used by Destroy.
// Guests call it from init.
func SetFactory(create plugin.CreateFunc, destroy plugin.DestroyFunc) {
	factory = create
	destroyer = destroy
}

// Create builds an instance and returns its handle, or 0 when no instance could be made.
func Create() uint32 {
	if factory == nil {
		return 0
	}
	p := factory()
	if p == nil {
		return 0
	}

	nextHandle++
	instances[nextHandle] = p

	return nextHandle
}

// Destroy releases the instance behind h.
func Destroy(h uint32) {
	p, ok := instances[h]
	if !ok {
		return
	}
	delete(instances, h)

	if destroyer != nil {
		destroyer(p)
	}
}

// Metadata returns the packed metadata of h.
func Metadata(h uint32) uint64 {
	p, res := lookup(h)
	if p == nil {
		return res
	}

	return valueResult(p.Metadata())
}

// Initialize initializes h with the host cache.
func Initialize(h uint32) uint64 {
	p, res := lookup(h)
	if p == nil {
		return res
	}
	if err := p.Initialize(HostCache{}); err != nil {
		return errorResult(err.Error())
	}

	return valueResult(nil)
}

// IsReady returns 1 when h reports ready.
func IsReady(h uint32) uint32 {
	if p, ok := instances[h]; ok && p.IsReady() {
		return 1
	}

	return 0
}

// Shutdown shuts h down.
func Shutdown(h uint32) {
	if p, ok := instances[h]; ok {
		p.Shutdown()
	}
}

// CollectInfo returns the packed fields collected by an info provider.
func CollectInfo(h uint32) uint64 {
	p, res := lookupInfo(h)
	if p == nil {
		return res
	}
	fields, err := p.CollectInfo(HostCache{})
	if err != nil {
		return errorResult(err.Error())
	}

	return valueResult(fields)
}

// FieldNames returns the packed field names of an info provider.
func FieldNames(h uint32) uint64 {
	p, res := lookupInfo(h)
	if p == nil {
		return res
	}

	return valueResult(p.FieldNames())
}

// FormatOutput renders the FormatRequest at ptr. The input buffer is freed.
func FormatOutput(h, ptr, length uint32) uint64 {
	data := ReadBytes(ptr, length)
	Free(ptr)

	p, res := lookupFormat(h)
	if p == nil {
		return res
	}

	var req FormatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResult("invalid format request: " + err.Error())
	}
	out, err := p.FormatOutput(req.Format, req.Data)
	if err != nil {
		return errorResult(err.Error())
	}

	return valueResult(out)
}

// FormatNames returns the packed format names of an output formatter.
func FormatNames(h uint32) uint64 {
	p, res := lookupFormat(h)
	if p == nil {
		return res
	}

	return valueResult(p.FormatNames())
}

// FileExtension returns the packed extension for the format name at ptr. The input buffer is freed.
func FileExtension(h, ptr, length uint32) uint64 {
	format := string(ReadBytes(ptr, length))
	Free(ptr)

	p, res := lookupFormat(h)
	if p == nil {
		return res
	}

	return valueResult(p.FileExtension(format))
}

func lookup(h uint32) (plugin.Plugin, uint64) {
	p, ok := instances[h]
	if !ok {
		return nil, errorResult(fmt.Sprintf("unknown plugin handle %d", h))
	}

	return p, 0
}

func lookupInfo(h uint32) (plugin.InfoProvider, uint64) {
	p, res := lookup(h)
	if p == nil {
		return nil, res
	}
	info, ok := p.(plugin.InfoProvider)
	if !ok {
		return nil, errorResult("plugin is not an info provider")
	}

	return info, 0
}

func lookupFormat(h uint32) (plugin.OutputFormatter, uint64) {
	p, res := lookup(h)
	if p == nil {
		return nil, res
	}
	f, ok := p.(plugin.OutputFormatter)
	if !ok {
		return nil, errorResult("plugin is not an output formatter")
	}

	return f, 0
}

func valueResult(v any) uint64 {
	var resp Response
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return errorResult(err.Error())
		}
		resp.Value = raw
	}

	return writeResponse(resp)
}

func errorResult(msg string) uint64 {
	return writeResponse(Response{Error: msg})
}

func writeResponse(resp Response) uint64 {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"failed to encode response"}`)
	}

	return WriteResult(data)
}
