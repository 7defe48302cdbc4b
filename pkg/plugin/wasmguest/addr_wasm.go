//go:build wasip1

package wasmguest

import "unsafe"

func bufferAddr(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(&buf[0])))
}

// memoryAt views length bytes of linear memory at ptr.
//
//nolint:gosec // allow unsafe pointer usage.
func memoryAt(ptr, length uint32) []byte {
	return (*[1 << 30]byte)(unsafe.Pointer(uintptr(ptr)))[:length:length]
}
