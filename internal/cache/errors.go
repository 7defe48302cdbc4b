package cache

import "github.com/jmgilman/go/errors"

// CodeIO classifies filesystem failures of the file-backed locations.
const CodeIO errors.ErrorCode = "IO_ERROR"

// Common cache errors.
var (
	ErrCacheMiss   = errors.New(errors.CodeNotFound, "cache entry not found")
	ErrInvalidKey  = errors.New(errors.CodeInvalidInput, "cache key cannot be empty")
	ErrNoFileStore = errors.New(errors.CodeInvalidConfig, "no file store configured for location")
	ErrBadLocation = errors.New(errors.CodeInvalidInput, "unknown cache location")
)
