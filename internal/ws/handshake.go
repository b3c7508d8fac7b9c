package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net"

	"github.com/andycostintoma/httpcore/internal/httpx"
)

const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ErrNotUpgradeRequest is returned by Upgrade when the request fails the
// minimal handshake validation (GET method, non-empty Sec-WebSocket-Key).
var ErrNotUpgradeRequest = errors.New("ws: not a websocket upgrade request")

// AcceptKey computes Sec-WebSocket-Accept from a client's
// Sec-WebSocket-Key per RFC 6455 §1.3.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + wsGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Upgrade validates the handshake, writes the 101 response through the
// shared httpx.Response path, and registers a new Connection bound to
// conn. The caller (the worker) must not close conn after a successful
// Upgrade — ownership has moved to the registry.
func Upgrade(req *httpx.Request, resp *httpx.Response, conn net.Conn, handler MessageHandler, reg *Registry) (*Connection, error) {
	if req.Method != httpx.MethodGET {
		return nil, ErrNotUpgradeRequest
	}
	key := req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, ErrNotUpgradeRequest
	}

	resp.SetStatus(101)
	resp.SetHeader("Upgrade", "websocket")
	resp.SetHeader("Connection", "Upgrade")
	resp.SetHeader("Sec-WebSocket-Accept", AcceptKey(key))
	if err := resp.FlushHeaders(); err != nil {
		return nil, err
	}

	c := newConnection(conn, handler, reg)
	reg.register(c)
	return c, nil
}
