//go:build wasip1

package wasmguest

import "unsafe"

//go:wasmimport env cache_get
func hostCacheGet(keyPtr, keyLen uint32) uint64

//go:wasmimport env cache_set
func hostCacheSet(keyPtr, keyLen, valPtr, valLen, ttl uint32)

//go:wasmimport env log_debug
func hostLog(ptr, length uint32)

// stringArg returns the address and length of s for a host call. s must stay
// alive for the duration of the call.
//
//nolint:gosec // allow unsafe pointer usage.
func stringArg(s string) (uint32, uint32) {
	if s == "" {
		return 0, 0
	}

	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}
