package ws

import (
	"sync"

	"github.com/google/uuid"

	"github.com/andycostintoma/httpcore/internal/logging"
)

// Registry is the UUID → Connection mapping guarded by a readers-writer
// lock, exactly spec.md §3/§4.8's registry.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection
	log   logging.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log logging.Logger) *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Connection), log: log.With("ws-registry")}
}

func (r *Registry) register(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// snapshot returns a point-in-time slice of all registered connections.
func (r *Registry) snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len reports the number of currently registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// BroadcastText sends msg to every connection, swallowing per-connection
// send failures as a warning event.
func (r *Registry) BroadcastText(msg string) {
	for _, c := range r.snapshot() {
		if err := c.SendText(msg); err != nil {
			r.log.Warning("broadcast text failed for connection", "conn", c.ID, "error", err.Error())
		}
	}
}

// BroadcastBinary sends b to every connection, swallowing per-connection
// send failures as a warning event.
func (r *Registry) BroadcastBinary(b []byte) {
	for _, c := range r.snapshot() {
		if err := c.SendBinary(b); err != nil {
			r.log.Warning("broadcast binary failed for connection", "conn", c.ID, "error", err.Error())
		}
	}
}
