package wasmguest

// pinned keeps allocated buffers reachable until Free.
var pinned = map[uint32][]byte{}

// Alloc allocates n bytes that stay valid until Free and returns their address.
// A zero-length request returns 0.
func Alloc(n uint32) uint32 {
	if n == 0 {
		return 0
	}

	buf := make([]byte, n)
	ptr := bufferAddr(buf)
	pinned[ptr] = buf

	return ptr
}

// Free releases a buffer returned by Alloc. Unknown pointers are ignored.
func Free(ptr uint32) {
	delete(pinned, ptr)
}

// Pinned returns the number of live allocations.
func Pinned() int {
	return len(pinned)
}
