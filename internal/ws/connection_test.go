package ws

import (
	"testing"

	"github.com/andycostintoma/httpcore/internal/logging"
)

type recordingHandler struct {
	texts  []string
	closed bool
}

func (h *recordingHandler) OnText(conn *Connection, msg string)   { h.texts = append(h.texts, msg) }
func (h *recordingHandler) OnBinary(conn *Connection, msg []byte) {}
func (h *recordingHandler) OnClose(conn *Connection, code int, reason string) {}
func (h *recordingHandler) OnConnectionClosed(conn *Connection)   { h.closed = true }

func TestContinuationReassemblyDeliversOnFin(t *testing.T) {
	h := &recordingHandler{}
	reg := NewRegistry(logging.Nop())
	conn := &fakeConn{}
	c := newConnection(conn, h, reg)

	c.setContinuation(Frame{Fin: false, Opcode: OpText, Payload: []byte("Hel")})
	c.appendContinuation(Frame{Fin: false, Opcode: OpContinuation, Payload: []byte("lo ")})
	c.appendContinuation(Frame{Fin: true, Opcode: OpContinuation, Payload: []byte("world")})

	if len(h.texts) != 1 || h.texts[0] != "Hello world" {
		t.Fatalf("got texts %v", h.texts)
	}
	if c.contSlot != nil {
		t.Fatalf("expected continuation slot cleared after delivery")
	}
}

func TestAppendContinuationWithNoSlotIsIgnored(t *testing.T) {
	h := &recordingHandler{}
	reg := NewRegistry(logging.Nop())
	c := newConnection(&fakeConn{}, h, reg)

	c.appendContinuation(Frame{Fin: true, Opcode: OpContinuation, Payload: []byte("orphan")})

	if len(h.texts) != 0 {
		t.Fatalf("expected no delivery for an orphaned continuation frame, got %v", h.texts)
	}
}

func TestCloseSocketIsIdempotentAndDeregisters(t *testing.T) {
	h := &recordingHandler{}
	reg := NewRegistry(logging.Nop())
	conn := &fakeConn{}
	c := newConnection(conn, h, reg)
	reg.register(c)

	c.closeSocket()
	c.closeSocket() // must not double-notify or double-close

	if !h.closed {
		t.Fatal("expected OnConnectionClosed to fire")
	}
	if !conn.closed {
		t.Fatal("expected socket closed")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected connection removed from registry, got %d", reg.Len())
	}
}
