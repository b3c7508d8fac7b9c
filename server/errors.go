package server

import (
	"errors"
	"fmt"

	"github.com/andycostintoma/httpcore/internal/httpx"
)

// StatusError is the designated exception type carrying a status code
// and an optional message, per spec.md §7's "handler status error".
type StatusError struct {
	Code    int
	Message string
}

// NewStatusError returns a StatusError with the given status and
// message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server: status %d: %s", e.Code, e.Message)
}

// DefaultOnError is the default exception handler installed when a
// Config carries none: it type-switches on *StatusError vs a generic
// error exactly as spec.md §7 prescribes. If the response already
// flushed headers, it only logs (via the caller, which already did so)
// and leaves the socket as-is.
func DefaultOnError(req *httpx.Request, resp *httpx.Response, err error) {
	if resp.Flushed() {
		return
	}

	var se *StatusError
	if errors.As(err, &se) {
		resp.SetStatus(se.Code)
		_ = resp.WriteBodyString(se.Message, "")
		return
	}

	resp.SetStatus(500)
	_ = resp.WriteBodyString("Internal Server Error", "")
}
