// Package plugin defines the contract between go_draconis and its extension modules.
//
// A plugin is any value implementing Plugin plus exactly one capability
// interface (InfoProvider or OutputFormatter) matching the Kind reported in
// its Metadata. Plugins never see the host cache directly; they receive a
// Cache, a two-method peek/poke view over the host's persistent store.
package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned by FormatOutput for a format name the
// formatter does not list in FormatNames.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Kind classifies a plugin by the capability it provides.
type Kind uint8

const (
	// KindInfoProvider plugins contribute extra system information fields.
	KindInfoProvider Kind = iota
	// KindOutputFormat plugins render collected data in additional formats.
	KindOutputFormat
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInfoProvider:
		return "info-provider"
	case KindOutputFormat:
		return "output-format"
	default:
		return "unknown"
	}
}

// ParseKind converts a configuration name back into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info-provider", "info", "system-info":
		return KindInfoProvider, true
	case "output-format", "output", "format":
		return KindOutputFormat, true
	default:
		return 0, false
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k.String() == "unknown" {
		return nil, fmt.Errorf("invalid plugin kind %d", k)
	}

	return []byte(k.String()), nil
}

// UnmarshalText accepts any name understood by ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown plugin kind %q", text)
	}
	*k = parsed

	return nil
}

// Dependencies lists what a plugin needs from its environment.
// The host only displays these flags; nothing is enforced.
type Dependencies struct {
	RequiresNetwork    bool `json:"requires_network,omitempty"`
	RequiresFilesystem bool `json:"requires_filesystem,omitempty"`
	RequiresAdmin      bool `json:"requires_admin,omitempty"`
	RequiresCaching    bool `json:"requires_caching,omitempty"`
}

// Flags returns the short names of every dependency that is set.
func (d Dependencies) Flags() []string {
	var flags []string
	if d.RequiresNetwork {
		flags = append(flags, "network")
	}
	if d.RequiresFilesystem {
		flags = append(flags, "filesystem")
	}
	if d.RequiresAdmin {
		flags = append(flags, "admin")
	}
	if d.RequiresCaching {
		flags = append(flags, "caching")
	}

	return flags
}

// Metadata describes a plugin.
type Metadata struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Author       string       `json:"author"`
	Description  string       `json:"description"`
	Kind         Kind         `json:"kind"`
	Dependencies Dependencies `json:"dependencies"`
}

// Cache is the storage view handed to plugins.
type Cache interface {
	// Get returns the value stored under key, if any live value exists.
	Get(key string) (string, bool)
	// Set stores value under key in persistent storage for ttlSeconds.
	Set(key, value string, ttlSeconds uint32)
}

// Plugin is implemented by every extension module.
type Plugin interface {
	Metadata() Metadata
	Initialize(cache Cache) error
	Shutdown()
	IsReady() bool
}

// InfoProvider contributes key/value fields to the collected system information.
type InfoProvider interface {
	Plugin

	CollectInfo(cache Cache) (map[string]string, error)
	FieldNames() []string
}

// OutputFormatter renders collected system information.
type OutputFormatter interface {
	Plugin

	// FormatOutput renders data using format, one of the names returned by FormatNames.
	FormatOutput(format string, data map[string]string) (string, error)
	FormatNames() []string
	// FileExtension returns the file extension (without dot) for format.
	FileExtension(format string) string
}

// CreateFunc constructs a plugin instance. A nil result is a load error.
type CreateFunc func() Plugin

// DestroyFunc releases a plugin instance previously returned by the matching CreateFunc.
type DestroyFunc func(Plugin)

// Exported symbol names every dynamic plugin library must provide.
const (
	CreateSymbol  = "CreatePlugin"
	DestroySymbol = "DestroyPlugin"
)
