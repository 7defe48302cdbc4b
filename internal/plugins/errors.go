package plugins

import "github.com/jmgilman/go/errors"

// CodeABI classifies dynamic libraries that do not honour the plugin ABI.
const CodeABI errors.ErrorCode = "PLUGIN_ABI"

// Plugin runtime errors.
var (
	ErrPluginNotFound = errors.New(errors.CodeNotFound, "plugin not found in any search path")
	ErrNotLoaded      = errors.New(errors.CodeNotFound, "plugin is not loaded")
	ErrMissingSymbol  = errors.New(CodeABI, "plugin does not export a required symbol")
	ErrNullInstance   = errors.New(CodeABI, "plugin factory returned no instance")
	ErrDisabled       = errors.New(errors.CodeUnavailable, "plugin system is disabled")
	ErrShutdown       = errors.New(errors.CodeUnavailable, "plugin manager shut down during load")
)
