package ws

import (
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Close status codes per RFC 6455 §7.4.1, enumerated as spec.md §6
// requires.
const (
	StatusNormal                      = 1000
	StatusGoingAway                   = 1001
	StatusProtocolError               = 1002
	StatusUnacceptableData            = 1003
	StatusNoCode                      = 1005
	StatusClosedAbnormally            = 1006
	StatusInconsistentData            = 1007
	StatusPolicyViolation             = 1008
	StatusMessageTooBig               = 1009
	StatusExtensionNegotiationFailure = 1010
	StatusUnexpectedCondition         = 1011
	StatusTLSHandshakeFailure         = 1015
)

// MessageHandler receives delivered messages and lifecycle notifications
// for one connection; the consuming application implements it.
type MessageHandler interface {
	OnText(conn *Connection, msg string)
	OnBinary(conn *Connection, msg []byte)
	OnClose(conn *Connection, code int, reason string)
	OnConnectionClosed(conn *Connection)
}

type connState int32

const (
	stateLive connState = iota
	stateHalfClosedReceiving
	stateClosed
)

// Connection is one upgraded WebSocket socket: an identity, the
// underlying net.Conn, the application's message handler, a back
// reference to the owning registry, and the continuation-frame slot
// used to reassemble fragmented messages.
type Connection struct {
	ID       uuid.UUID
	conn     net.Conn
	handler  MessageHandler
	registry *Registry

	mu       sync.Mutex
	contSlot *Frame

	state atomic.Int32
}

func newConnection(conn net.Conn, handler MessageHandler, reg *Registry) *Connection {
	c := &Connection{ID: uuid.New(), conn: conn, handler: handler, registry: reg}
	c.state.Store(int32(stateLive))
	return c
}

func (c *Connection) isClosed() bool {
	return connState(c.state.Load()) == stateClosed
}

func (c *Connection) send(opcode Opcode, payload []byte) error {
	return WriteFrame(c.conn, opcode, payload, true)
}

// SendText delivers a TEXT frame.
func (c *Connection) SendText(msg string) error { return c.send(OpText, []byte(msg)) }

// SendBinary delivers a BINARY frame.
func (c *Connection) SendBinary(b []byte) error { return c.send(OpBinary, b) }

// SendClose writes a CLOSE frame carrying a 2-byte big-endian status
// prefix followed by up to 123 bytes of message, and transitions the
// connection to half-closed-receiving, per spec.md §4.8's state machine.
func (c *Connection) SendClose(status int, msg string) error {
	if len(msg) > 123 {
		msg = msg[:123]
	}
	payload := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(payload, uint16(status))
	copy(payload[2:], msg)

	c.state.CompareAndSwap(int32(stateLive), int32(stateHalfClosedReceiving))
	return c.send(OpClose, payload)
}

// closeSocket transitions the connection to CLOSED, closes the socket,
// notifies the handler, and deregisters — idempotent.
func (c *Connection) closeSocket() {
	if connState(c.state.Swap(int32(stateClosed))) == stateClosed {
		return
	}
	_ = c.conn.Close()
	if c.handler != nil {
		c.handler.OnConnectionClosed(c)
	}
	if c.registry != nil {
		c.registry.remove(c.ID)
	}
}

func (c *Connection) deliver(f Frame) {
	if c.handler == nil {
		return
	}
	switch f.Opcode {
	case OpText:
		c.handler.OnText(c, string(f.Payload))
	case OpBinary:
		c.handler.OnBinary(c, f.Payload)
	}
}

// setContinuation stores f as the connection's continuation slot,
// replacing any previous slot (spec.md §4.8 dispatch rule).
func (c *Connection) setContinuation(f Frame) {
	cp := f
	c.mu.Lock()
	c.contSlot = &cp
	c.mu.Unlock()
}

// appendContinuation appends f's payload onto the stored slot; if no
// slot exists the frame is silently ignored, and if f completes the
// message (FIN=1) the slot is delivered and cleared.
func (c *Connection) appendContinuation(f Frame) {
	c.mu.Lock()
	if c.contSlot == nil {
		c.mu.Unlock()
		return
	}
	c.contSlot.Payload = append(c.contSlot.Payload, f.Payload...)
	var deliverSlot *Frame
	if f.Fin {
		deliverSlot = c.contSlot
		c.contSlot = nil
	}
	c.mu.Unlock()

	if deliverSlot != nil {
		c.deliver(*deliverSlot)
	}
}
