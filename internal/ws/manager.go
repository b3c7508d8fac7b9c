package ws

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/andycostintoma/httpcore/internal/logging"
)

// pollTimeout substitutes for the spec's 100 ms select() timeout: Go's
// net.Conn has no OS-level non-blocking select, so each connection is
// polled with a short read deadline instead, preserving the "returns
// periodically so shutdown is observable" property.
const pollTimeout = 100 * time.Millisecond

// emptySleep is how long the loop waits before re-snapshotting the
// registry when it is empty (spec.md §4.8 step 2).
const emptySleep = time.Millisecond

// Manager is the WebSocket event-loop demultiplexer: it repeatedly
// snapshots the registry, prunes dead connections, and dispatches one
// frame per readable connection per iteration.
type Manager struct {
	registry *Registry
	log      logging.Logger
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager returns a Manager bound to reg.
func NewManager(reg *Registry, log logging.Logger) *Manager {
	return &Manager{registry: reg, log: log.With("ws-manager"), done: make(chan struct{})}
}

// Start runs the event loop in its own goroutine.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop signals the loop to exit and waits for it to finish.
func (m *Manager) Stop() {
	close(m.done)
	m.wg.Wait()
}

// loop implements the four numbered steps of spec.md §4.8: snapshot +
// prune, empty-sleep, poll with timeout, per-connection dispatch. A
// fatal condition (panic) inside the loop logs and terminates the
// manager without affecting the rest of the server.
func (m *Manager) loop() {
	defer m.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error(fmt.Errorf("%v", rec), "websocket manager terminated after a fatal error")
		}
	}()

	for {
		select {
		case <-m.done:
			return
		default:
		}

		conns := m.pruneDead(m.registry.snapshot())
		if len(conns) == 0 {
			time.Sleep(emptySleep)
			continue
		}
		m.pollAll(conns)
	}
}

func (m *Manager) pruneDead(conns []*Connection) []*Connection {
	alive := conns[:0]
	for _, c := range conns {
		if c.isClosed() {
			if m.registry != nil {
				m.registry.remove(c.ID)
			}
			continue
		}
		alive = append(alive, c)
	}
	return alive
}

// pollAll polls every connection concurrently, each bounded by
// pollTimeout, so one iteration costs roughly one poll window
// regardless of registry size.
func (m *Manager) pollAll(conns []*Connection) {
	var wg sync.WaitGroup
	for _, c := range conns {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.pollOne(c)
		}()
	}
	wg.Wait()
}

func (m *Manager) pollOne(c *Connection) {
	if c.isClosed() {
		return
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
		c.closeSocket()
		return
	}

	f, err := ReadFrame(c.conn)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return // nothing readable within this poll window
		}
		c.closeSocket()
		return
	}

	if err := m.dispatch(c, f); err != nil {
		m.log.Warning("websocket protocol error, closing connection", "conn", c.ID.String(), "error", err.Error())
		c.closeSocket()
	}
}

// dispatch implements spec.md §4.8's per-opcode behavior.
func (m *Manager) dispatch(c *Connection, f Frame) error {
	switch f.Opcode {
	case OpText, OpBinary:
		if f.Fin {
			c.deliver(f)
		} else {
			c.setContinuation(f)
		}
	case OpContinuation:
		c.appendContinuation(f)
	case OpPing:
		return c.send(OpPong, f.Payload)
	case OpPong:
		// no application-visible effect
	case OpClose:
		code, reason := parseClosePayload(f.Payload)
		if c.handler != nil {
			c.handler.OnClose(c, code, reason)
		}
		_ = c.send(OpClose, f.Payload) // echo, swallowing send errors
		c.closeSocket()
	default:
		return ErrUnknownOpcode
	}
	return nil
}

// parseClosePayload extracts the status code (default StatusNoCode) and
// message from a CLOSE frame's payload.
func parseClosePayload(p []byte) (int, string) {
	if len(p) < 2 {
		return StatusNoCode, ""
	}
	return int(binary.BigEndian.Uint16(p[:2])), string(p[2:])
}
