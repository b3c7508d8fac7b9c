// Package server is the embeddable HTTP/1.1 server facade: the accept
// loop, configuration, error-handling contract, and the Handler
// interface consuming applications implement (C7).
package server

import (
	"github.com/andycostintoma/httpcore/internal/worker"
)

// Handler is the application-supplied request/response callback.
type Handler = worker.Handler

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc = worker.HandlerFunc

// defaults mirror spec.md §6's configuration table.
const (
	defaultHostname                    = "127.0.0.1"
	defaultPort                        = 8080
	defaultReuseAddress                = true
	defaultConnectionQueueSize         = 100
	defaultReceiveBufferSize           = 8192
	defaultRequestQueueSize            = 128
	defaultWorkerPoolSize              = 25
	defaultWorkerPoolManagerIntervalMs = 60000
)

// Config is immutable once passed to Start; every field is set through
// the With* functional options below, in the teacher's small-struct,
// pass-by-value idiom (see httpx.ParseLimits/HeaderLimits).
type Config struct {
	Hostname                    string
	Port                        int
	ReuseAddress                bool
	ConnectionQueueSize         int
	ReceiveBufferSize           int
	RequestQueueSize            int
	WorkerPoolSize              int
	WorkerPoolManagerIntervalMs int
	DefaultHeaders              map[string][]string
	PreBindCallbacks            []func(ListenerHandle)
	PostShutdownCallbacks       []func()
	EnableWebSockets            bool
}

// Option mutates a Config under construction.
type Option func(*Config)

// NewConfig builds a Config from spec.md §6's defaults, then applies
// opts in order.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Hostname:                    defaultHostname,
		Port:                        defaultPort,
		ReuseAddress:                defaultReuseAddress,
		ConnectionQueueSize:         defaultConnectionQueueSize,
		ReceiveBufferSize:           defaultReceiveBufferSize,
		RequestQueueSize:            defaultRequestQueueSize,
		WorkerPoolSize:              defaultWorkerPoolSize,
		WorkerPoolManagerIntervalMs: defaultWorkerPoolManagerIntervalMs,
		DefaultHeaders:              map[string][]string{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithHostname sets the bind address.
func WithHostname(host string) Option { return func(c *Config) { c.Hostname = host } }

// WithPort sets the bind port.
func WithPort(port int) Option { return func(c *Config) { c.Port = port } }

// WithReuseAddress toggles SO_REUSEADDR.
func WithReuseAddress(reuse bool) Option { return func(c *Config) { c.ReuseAddress = reuse } }

// WithConnectionQueueSize sets the listen backlog.
func WithConnectionQueueSize(n int) Option { return func(c *Config) { c.ConnectionQueueSize = n } }

// WithReceiveBufferSize sets the per-worker receive buffer size.
func WithReceiveBufferSize(n int) Option { return func(c *Config) { c.ReceiveBufferSize = n } }

// WithRequestQueueSize sets the shared submission queue's capacity.
func WithRequestQueueSize(n int) Option { return func(c *Config) { c.RequestQueueSize = n } }

// WithWorkerPoolSize sets the number of workers.
func WithWorkerPoolSize(n int) Option { return func(c *Config) { c.WorkerPoolSize = n } }

// WithWorkerPoolManagerIntervalMs sets the health-check period.
func WithWorkerPoolManagerIntervalMs(ms int) Option {
	return func(c *Config) { c.WorkerPoolManagerIntervalMs = ms }
}

// WithDefaultHeader adds a header applied to every response.
func WithDefaultHeader(key, value string) Option {
	return func(c *Config) { c.DefaultHeaders[key] = append(c.DefaultHeaders[key], value) }
}

// WithPreBindCallback registers a function invoked on the not-yet-bound
// listening socket before bind(2), per spec.md §4.7 step 2.
func WithPreBindCallback(fn func(ListenerHandle)) Option {
	return func(c *Config) { c.PreBindCallbacks = append(c.PreBindCallbacks, fn) }
}

// WithPostShutdownCallback registers a function invoked after the accept
// loop exits.
func WithPostShutdownCallback(fn func()) Option {
	return func(c *Config) { c.PostShutdownCallbacks = append(c.PostShutdownCallbacks, fn) }
}

// WithWebSockets enables the WebSocket manager goroutine.
func WithWebSockets(enable bool) Option { return func(c *Config) { c.EnableWebSockets = enable } }
