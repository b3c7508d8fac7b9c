// Package assemble implements the request assembler (C4): turning a
// freshly accepted connection and a preallocated receive buffer into a
// parsed request and a response bound to the same socket.
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"net"

	"github.com/andycostintoma/httpcore/internal/httpx"
	"github.com/andycostintoma/httpcore/internal/logging"
	"github.com/andycostintoma/httpcore/internal/netx"
)

// ErrZeroRead is returned when the initial read off the connection
// returns no bytes and no error — treated as an abandoned connection.
var ErrZeroRead = errors.New("assemble: zero-byte read")

// DefaultHeaders is the set of header lines copied onto every assembled
// response in addition to "Connection: close".
type DefaultHeaders map[string][]string

// Assemble performs the five steps of the request assembler:
//  1. one read into buf,
//  2. parse the filled prefix, abandoning on a parse error,
//  3. build the request body as concat(residual-header-bytes, conn),
//  4. build the response bound to conn with default headers plus
//     Connection: close,
//  5. return the pair.
func Assemble(conn net.Conn, buf []byte, limits httpx.ParseLimits, maxBodySize int64, defaults DefaultHeaders, log logging.Logger) (*httpx.Request, *httpx.Response, error) {
	n, err := conn.Read(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: initial read: %w", err)
	}
	if n == 0 {
		return nil, nil, ErrZeroRead
	}

	lr := netx.NewCRLFFastReader(bytes.NewReader(buf[:n]))
	req, err := httpx.ParseRequest(lr, limits)
	if err != nil {
		log.Warning("request parse failed", "error", err.Error())
		return nil, nil, err
	}

	req.RemoteAddr = conn.RemoteAddr().String()

	bodySrc := netx.Concat(lr, conn)
	body, _, err := httpx.NewBodyReader(req.Context(), req, bodySrc, maxBodySize)
	if err != nil {
		log.Warning("body reader setup failed", "error", err.Error())
		return nil, nil, err
	}
	req.Body = body

	resp := httpx.NewResponse(conn, req.ProtoMinor)
	for k, vals := range defaults {
		for _, v := range vals {
			resp.AddHeader(k, v)
		}
	}
	resp.SetHeader("Connection", "close")

	return req, resp, nil
}
