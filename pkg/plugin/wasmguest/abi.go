// Package wasmguest is the guest side of the go_draconis WASM plugin ABI.
//
// A guest module exports CreatePlugin, DestroyPlugin, Alloc and Free plus one
// plugin_* function per Plugin method; each of those is a thin wrapper over
// the matching function in this package. Results cross the boundary as a
// JSON Response packed into a single uint64 (pointer in the high half,
// length in the low half).
package wasmguest

import "encoding/json"

// Exported symbol names of a guest module.
const (
	ExportCreate        = "CreatePlugin"
	ExportDestroy       = "DestroyPlugin"
	ExportAlloc         = "Alloc"
	ExportFree          = "Free"
	ExportMetadata      = "plugin_metadata"
	ExportInitialize    = "plugin_initialize"
	ExportIsReady       = "plugin_is_ready"
	ExportShutdown      = "plugin_shutdown"
	ExportCollectInfo   = "plugin_collect_info"
	ExportFieldNames    = "plugin_field_names"
	ExportFormatOutput  = "plugin_format_output"
	ExportFormatNames   = "plugin_format_names"
	ExportFileExtension = "plugin_file_extension"
)

// Host functions imported from the "env" module.
const (
	HostModule = "env"
	ImportGet  = "cache_get"
	ImportSet  = "cache_set"
	ImportLog  = "log_debug"
)

// Response is the envelope of every packed result.
type Response struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// FormatRequest is the input of plugin_format_output.
type FormatRequest struct {
	Format string            `json:"format"`
	Data   map[string]string `json:"data"`
}

// PackResult combines a pointer and a length into a single uint64 result.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a packed result into pointer and length.
func UnpackResult(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}
