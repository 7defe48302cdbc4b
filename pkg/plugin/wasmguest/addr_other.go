//go:build !wasip1

package wasmguest

// Outside WASM, addresses are synthetic keys into the pinned table so the
// package can be exercised by host tests.
var nextAddr uint32 = 8

func bufferAddr(buf []byte) uint32 {
	ptr := nextAddr
	nextAddr += uint32(len(buf)) + (8-uint32(len(buf))%8)%8

	return ptr
}

func memoryAt(ptr, length uint32) []byte {
	buf, ok := pinned[ptr]
	if !ok || uint32(len(buf)) < length {
		panic("wasmguest: access outside an allocated buffer")
	}

	return buf[:length:length]
}
