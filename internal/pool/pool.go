// Package pool implements the worker pool and health manager (C6): a
// fixed-size set of worker goroutines fed by a shared bounded queue, with
// a background manager that replaces dead workers on an interval.
package pool

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andycostintoma/httpcore/internal/logging"
	"github.com/andycostintoma/httpcore/internal/worker"
)

// ErrQueueFull is returned by Submit when the shared queue has no room;
// the accept loop must not block on a full pool.
var ErrQueueFull = errors.New("pool: request queue full")

const (
	defaultSize            = 25
	defaultQueueSize       = 128
	defaultManagerInterval = 60 * time.Second
	dequeueTimeout         = 10 * time.Second
)

// Config configures the pool's shape; zero values take the spec's
// defaults.
type Config struct {
	Size            int
	QueueSize       int
	ManagerInterval time.Duration
	WorkerConfig    worker.Config // ID is overwritten per spawned worker
	Log             logging.Logger
}

// workerState tracks one worker goroutine's liveness, mirroring spec's
// WorkerState (id, running, busy).
type workerState struct {
	id      int
	w       *worker.Worker
	running atomic.Bool
	busy    atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Pool is the shared-bounded-queue worker pool plus health manager.
type Pool struct {
	cfg      Config
	log      logging.Logger
	queue    chan net.Conn
	running  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.RWMutex
	workers []*workerState
	nextID  atomic.Int64
}

// New constructs a Pool; call Start to spawn workers and the health
// manager.
func New(cfg Config) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.ManagerInterval <= 0 {
		cfg.ManagerInterval = defaultManagerInterval
	}
	return &Pool{
		cfg:   cfg,
		log:   cfg.Log.With("pool"),
		queue: make(chan net.Conn, cfg.QueueSize),
		done:  make(chan struct{}),
	}
}

// Start spawns cfg.Size workers and the health manager goroutine.
func (p *Pool) Start(ctx context.Context) {
	p.running.Store(true)
	p.mu.Lock()
	p.workers = make([]*workerState, 0, p.cfg.Size)
	for i := 0; i < p.cfg.Size; i++ {
		p.workers = append(p.workers, p.spawnWorker(ctx, int(p.nextID.Add(1))))
	}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.manage(ctx)
}

// spawnWorker starts one worker goroutine draining the shared queue. The
// caller must hold p.mu for the duration of the append into p.workers.
func (p *Pool) spawnWorker(ctx context.Context, id int) *workerState {
	wctx, cancel := context.WithCancel(ctx)
	wcfg := p.cfg.WorkerConfig
	wcfg.ID = id
	wcfg.Log = p.log
	st := &workerState{
		id:     id,
		w:      worker.New(wcfg),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	st.running.Store(true)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(st.done)
		defer st.running.Store(false)
		p.drain(wctx, st)
	}()
	return st
}

// drain pulls connections off the shared queue until the pool stops.
func (p *Pool) drain(ctx context.Context, st *workerState) {
	for {
		timer := time.NewTimer(dequeueTimeout)
		select {
		case <-p.done:
			timer.Stop()
			return
		case conn, ok := <-p.queue:
			timer.Stop()
			if !ok {
				return
			}
			st.busy.Store(true)
			st.w.Serve(ctx, conn)
			st.busy.Store(false)
		case <-timer.C:
			if !p.running.Load() {
				return
			}
		}
	}
}

// Submit enqueues conn without blocking; it returns ErrQueueFull if the
// queue is at capacity, matching "callers must not block the accept
// loop".
func (p *Pool) Submit(conn net.Conn) error {
	select {
	case p.queue <- conn:
		return nil
	default:
		p.log.Error(ErrQueueFull, "request queue full, dropping connection")
		return ErrQueueFull
	}
}

// manage is the health manager goroutine: on each tick, it scans the
// worker list under the write lock and replaces any worker whose
// goroutine has exited.
func (p *Pool) manage(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.ManagerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.replaceDeadWorkers(ctx)
		}
	}
}

func (p *Pool) replaceDeadWorkers(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy, waiting, dead := 0, 0, 0
	for i, st := range p.workers {
		if !st.running.Load() {
			dead++
			newID := int(p.nextID.Add(1))
			p.log.Warning("replacing dead worker", "dead_id", st.id, "replacement_id", newID)
			p.workers[i] = p.spawnWorker(ctx, newID)
			continue
		}
		if st.busy.Load() {
			busy++
		} else {
			waiting++
		}
	}
	p.log.Debug("pool health summary", "busy", busy, "waiting", waiting, "dead", dead)
}

// Stop signals every worker and the health manager to exit and waits for
// them to finish.
func (p *Pool) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)

	p.mu.Lock()
	for _, st := range p.workers {
		st.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.workers = nil
	p.nextID.Store(0)
	p.mu.Unlock()
}
