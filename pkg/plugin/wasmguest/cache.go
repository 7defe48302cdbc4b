package wasmguest

import (
	"encoding/json"
	"runtime"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
)

// HostCache is the plugin.Cache backed by the host's cache_get and cache_set imports.
type HostCache struct{}

var _ plugin.Cache = HostCache{}

// Get returns the value the host holds for key.
func (HostCache) Get(key string) (string, bool) {
	kp, kl := stringArg(key)
	packed := hostCacheGet(kp, kl)
	runtime.KeepAlive(key)
	if packed == 0 {
		return "", false
	}

	ptr, length := UnpackResult(packed)
	data := ReadBytes(ptr, length)
	Free(ptr)

	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}

	return v, true
}

// Set asks the host to store value under key for ttlSeconds (0 never expires).
func (HostCache) Set(key, value string, ttlSeconds uint32) {
	kp, kl := stringArg(key)
	vp, vl := stringArg(value)
	hostCacheSet(kp, kl, vp, vl, ttlSeconds)
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

// Log sends a debug message to the host logger.
func Log(msg string) {
	p, l := stringArg(msg)
	hostLog(p, l)
	runtime.KeepAlive(msg)
}
