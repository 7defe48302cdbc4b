//go:build !wasip1

package wasmguest

import (
	"encoding/json"
	"time"
)

// Outside WASM the host imports are served by an in-process table.
var (
	fakeCache = map[string]fakeValue{}
	fakeLogs  []string
	argBufs   = map[uint32]string{}
	nextArg   uint32
)

type fakeValue struct {
	value   string
	expires time.Time
}

func hostCacheGet(keyPtr, _ uint32) uint64 {
	v, ok := fakeCache[argBufs[keyPtr]]
	if !ok || (!v.expires.IsZero() && time.Now().After(v.expires)) {
		return 0
	}

	data, _ := json.Marshal(v.value)

	return WriteResult(data)
}

func hostCacheSet(keyPtr, _, valPtr, _, ttl uint32) {
	v := fakeValue{value: argBufs[valPtr]}
	if ttl > 0 {
		v.expires = time.Now().Add(time.Duration(ttl) * time.Second)
	}
	fakeCache[argBufs[keyPtr]] = v
}

func hostLog(ptr, _ uint32) {
	fakeLogs = append(fakeLogs, argBufs[ptr])
}

func stringArg(s string) (uint32, uint32) {
	nextArg++
	argBufs[nextArg] = s

	return nextArg, uint32(len(s))
}
