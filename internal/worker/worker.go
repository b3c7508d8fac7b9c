// Package worker implements the per-connection handler execution unit
// (C5): a reusable receive buffer and socket drain loop that turns one
// accepted connection into one handler invocation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/andycostintoma/httpcore/internal/assemble"
	"github.com/andycostintoma/httpcore/internal/httpx"
	"github.com/andycostintoma/httpcore/internal/logging"
)

// StatusSwitchingProtocols is the status that signals socket ownership
// transfer to the WebSocket subsystem; the worker must not close the
// connection when it sees this status.
const StatusSwitchingProtocols = 101

// Handler is the application-supplied request/response callback.
type Handler interface {
	Handle(req *httpx.Request, resp *httpx.Response)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req *httpx.Request, resp *httpx.Response)

// Handle calls f(req, resp).
func (f HandlerFunc) Handle(req *httpx.Request, resp *httpx.Response) { f(req, resp) }

// ExceptionHandler is invoked when Handler.Handle panics or returns via a
// recovered error; it gets one more chance to write a response.
type ExceptionHandler func(req *httpx.Request, resp *httpx.Response, err error)

// Config bundles the knobs a Worker needs, all supplied by the owning pool.
type Config struct {
	ID                int
	ReceiveBufferSize int
	ParseLimits       httpx.ParseLimits
	MaxBodySize       int64
	DefaultHeaders    assemble.DefaultHeaders
	Handler           Handler
	OnError           ExceptionHandler
	Log               logging.Logger
}

// Worker owns a fixed-size receive buffer and drains connections handed
// to it by the pool, one at a time, for the lifetime of the worker.
type Worker struct {
	id      int
	buf     []byte
	cfg     Config
	log     logging.Logger
}

// New returns a Worker with its own receive buffer; cfg.ReceiveBufferSize
// <= 0 defaults to 8 KiB.
func New(cfg Config) *Worker {
	size := cfg.ReceiveBufferSize
	if size <= 0 {
		size = 8192
	}
	return &Worker{
		id:  cfg.ID,
		buf: make([]byte, size),
		cfg: cfg,
		log: cfg.Log.With("worker"),
	}
}

// ID returns the worker's identity, used by the pool's health manager in
// its dead/replacement log messages.
func (w *Worker) ID() int { return w.id }

// Serve assembles a request from conn, invokes the handler, and closes
// the connection unless the response switched protocols. It never
// returns an error: every failure mode is logged and swallowed, matching
// spec's "close socket, emit skip event, continue" worker loop.
func (w *Worker) Serve(ctx context.Context, conn net.Conn) {
	req, resp, err := assemble.Assemble(conn, w.buf, w.cfg.ParseLimits, w.cfg.MaxBodySize, w.cfg.DefaultHeaders, w.log)
	if err != nil {
		w.log.Skip("assembler failed", "worker", w.id, "error", err.Error())
		_ = conn.Close()
		return
	}
	req = req.WithContext(ctx)

	w.invoke(req, resp)

	if !resp.Flushed() {
		if err := resp.FlushHeaders(); err != nil {
			w.log.Warning("flush empty response failed", "worker", w.id, "error", err.Error())
		}
	}

	if resp.StatusCode() == StatusSwitchingProtocols {
		// Ownership transferred to the WebSocket subsystem; do not close.
		return
	}
	_ = conn.Close()
}

// invoke runs the handler, recovering a panic and routing it (along with
// any handler-raised *StatusError-like error) to the configured
// exception handler.
func (w *Worker) invoke(req *httpx.Request, resp *httpx.Response) {
	if w.cfg.Handler == nil {
		w.runExceptionHandler(req, resp, errNilHandler)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			err := toError(rec)
			w.runExceptionHandler(req, resp, err)
		}
	}()
	w.cfg.Handler.Handle(req, resp)
}

func (w *Worker) runExceptionHandler(req *httpx.Request, resp *httpx.Response, err error) {
	w.log.Error(err, "handler error", "worker", w.id)

	if w.cfg.OnError == nil {
		if !resp.Flushed() {
			resp.SetStatus(500)
			_ = resp.WriteBodyString("Internal Server Error", "")
		}
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error(toError(rec), "exception handler itself panicked", "worker", w.id)
		}
	}()
	w.cfg.OnError(req, resp, err)
}

func toError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("worker: panic: %v", rec)
}

var errNilHandler = errors.New("worker: no handler configured")
