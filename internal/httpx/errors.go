package httpx

import "errors"

// Parse error kinds returned by ParseRequest, wrapped with %w so callers
// can tell them apart with errors.Is. The request assembler treats all
// three alike: it emits a warning and abandons the connection.
var (
	ErrIncomplete         = errors.New("httpx: incomplete request")
	ErrMalformed          = errors.New("httpx: malformed request")
	ErrVersionUnsupported = errors.New("httpx: unsupported HTTP version")
)
