package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/andycostintoma/httpcore/internal/assemble"
	"github.com/andycostintoma/httpcore/internal/logging"
	"github.com/andycostintoma/httpcore/internal/pool"
	"github.com/andycostintoma/httpcore/internal/worker"
	"github.com/andycostintoma/httpcore/internal/ws"
)

// Server is the embeddable HTTP/1.1 (+ optional WebSocket) server
// facade: accept loop, worker pool, and lifecycle flags (C7).
type Server struct {
	cfg     Config
	handler Handler
	onError worker.ExceptionHandler
	log     logging.Logger

	pool *pool.Pool

	wsRegistry *ws.Registry
	wsManager  *ws.Manager

	listener net.Listener
	ready    atomic.Bool
	running  atomic.Bool
}

// New returns a Server bound to handler, configured by cfg. onError may
// be nil, in which case DefaultOnError is installed.
func New(cfg Config, handler Handler, onError worker.ExceptionHandler, log logging.Logger) *Server {
	if onError == nil {
		onError = DefaultOnError
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		onError: onError,
		log:     log.With("server"),
	}
}

// WebSocketRegistry exposes the WebSocket connection registry so a
// handler can broadcast or enumerate connections. Only non-nil once
// Start has run with EnableWebSockets set.
func (s *Server) WebSocketRegistry() *ws.Registry { return s.wsRegistry }

// IsReady reports whether the listener is bound and the accept loop is
// running.
func (s *Server) IsReady() bool { return s.ready.Load() }

// Addr returns the bound listener address. Only valid once IsReady
// reports true.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Start performs the seven numbered steps of spec.md §4.7 and blocks,
// running the accept loop, until Stop is called or the listener fails
// for a reason other than being closed.
func (s *Server) Start() error {
	ln, err := listenTCP(s.cfg.Hostname, s.cfg.Port, s.cfg.ReuseAddress, s.cfg.ConnectionQueueSize, s.cfg.PreBindCallbacks)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}

	s.listener = ln
	s.ready.Store(true)
	s.running.Store(true)

	ctx := context.Background()
	if s.cfg.EnableWebSockets {
		s.wsRegistry = ws.NewRegistry(s.log)
		s.wsManager = ws.NewManager(s.wsRegistry, s.log)
		s.wsManager.Start()
		ctx = ws.WithRegistry(ctx, s.wsRegistry)
	}

	defaultHeaders := assemble.DefaultHeaders(s.cfg.DefaultHeaders)
	s.pool = pool.New(pool.Config{
		Size:            s.cfg.WorkerPoolSize,
		QueueSize:       s.cfg.RequestQueueSize,
		ManagerInterval: time.Duration(s.cfg.WorkerPoolManagerIntervalMs) * time.Millisecond,
		Log:             s.log,
		WorkerConfig: worker.Config{
			ReceiveBufferSize: s.cfg.ReceiveBufferSize,
			DefaultHeaders:    defaultHeaders,
			Handler:           s.handler,
			OnError:           s.onError,
			Log:               s.log,
		},
	})
	s.pool.Start(ctx)

	s.acceptLoop(ln)

	s.ready.Store(false)
	s.pool.Stop()
	if s.wsManager != nil {
		s.wsManager.Stop()
	}
	for _, hook := range s.cfg.PostShutdownCallbacks {
		hook()
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) {
				s.log.Warning("accept failed, continuing", "error", err.Error())
				continue
			}
			s.log.Error(err, "accept failed fatally, stopping")
			return
		}
		if err := s.pool.Submit(conn); err != nil {
			_ = conn.Close()
		}
	}
}

// Stop closes the listening socket from any goroutine, causing accept
// to fail and the loop in Start to exit.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
