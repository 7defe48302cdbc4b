package wasmguest

// ReadBytes returns a copy of length bytes at ptr.
func ReadBytes(ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	out := make([]byte, length)
	copy(out, memoryAt(ptr, length))

	return out
}

// WriteBytes copies data into memory at ptr.
func WriteBytes(ptr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	copy(memoryAt(ptr, uint32(len(data))), data)
}

// WriteResult allocates a buffer for data and returns the packed pointer and length.
func WriteResult(data []byte) uint64 {
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return PackResult(ptr, uint32(len(data)))
}
