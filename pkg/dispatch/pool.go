package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/postoffice/pkg/logger"
)

// DefaultWorkers is the number of pool workers when none is configured.
const DefaultWorkers = 10

// Handler runs a single task.
type Handler[T any] func(ctx context.Context, task T)

type poolConfig struct {
	logger  *slog.Logger
	workers int
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

type pending[T any] struct {
	timer *time.Timer
	task  T
}

// Pool is an in-memory delayed task scheduler with a bounded worker set.
type Pool[T any] struct {
	handle  Handler[T]
	drop    Handler[T]
	logger  *slog.Logger
	workers int

	mu       sync.Mutex
	started  bool
	stopping bool
	seq      uint64
	pending  map[uint64]*pending[T]

	ready    chan T
	abort    chan struct{}
	done     chan struct{}
	inflight sync.WaitGroup
	wg       sync.WaitGroup

	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewPool creates a pool that runs handle for every task once its delay
// elapses. drop, when non-nil, receives tasks abandoned by Stop.
func NewPool[T any](handle, drop Handler[T], opts ...PoolOption) *Pool[T] {
	cfg := &poolConfig{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}
	if drop == nil {
		drop = func(context.Context, T) {}
	}

	return &Pool[T]{
		handle:  handle,
		drop:    drop,
		logger:  cfg.logger,
		workers: cfg.workers,
		pending: make(map[uint64]*pending[T]),
		ready:   make(chan T),
		abort:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the workers. Tasks run with a context derived from ctx
// that is not cancelled when ctx is; it is cancelled only when Stop gives up.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if p.stopping {
		return ErrStopped
	}

	p.runCtx, p.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	for range p.workers {
		p.wg.Go(p.work)
	}
	p.started = true

	p.logger.InfoContext(ctx, "dispatch pool started", slog.Int("workers", p.workers))
	return nil
}

// Schedule registers task to run after delay. It returns immediately.
func (p *Pool[T]) Schedule(_ context.Context, delay time.Duration, task T) error {
	if delay < 0 {
		return ErrInvalidDelay
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopping {
		return ErrStopped
	}
	if !p.started {
		return ErrNotStarted
	}

	p.seq++
	id := p.seq
	entry := &pending[T]{task: task}
	p.pending[id] = entry
	p.inflight.Add(1)
	entry.timer = time.AfterFunc(delay, func() { p.fire(id) })

	return nil
}

// Pending returns the number of tasks whose timers have not fired yet.
func (p *Pool[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stop stops accepting tasks and waits for scheduled and running tasks.
// When ctx is done first, tasks that have not started are handed to the
// drop handler, running tasks see their context cancelled, and Stop
// returns ErrDrainTimeout.
func (p *Pool[T]) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if p.stopping {
		p.mu.Unlock()
		return ErrStopped
	}
	p.stopping = true
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		dropped := p.abortPending(ctx)
		p.cancelRun()
		<-drained
		err = errors.Join(ErrDrainTimeout, ctx.Err())
		p.logger.WarnContext(ctx, "dispatch pool stopped before draining",
			slog.Int("dropped", dropped),
		)
	}

	close(p.done)
	p.wg.Wait()
	p.cancelRun()

	p.logger.InfoContext(ctx, "dispatch pool stopped")
	return err
}

// abortPending cancels every timer that has not handed its task to a worker.
func (p *Pool[T]) abortPending(ctx context.Context) int {
	close(p.abort)

	p.mu.Lock()
	tasks := make([]T, 0, len(p.pending))
	for id, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, id)
		tasks = append(tasks, entry.task)
	}
	p.mu.Unlock()

	dropCtx := context.WithoutCancel(ctx)
	for _, task := range tasks {
		p.drop(dropCtx, task)
		p.inflight.Done()
	}
	return len(tasks)
}

func (p *Pool[T]) fire(id uint64) {
	p.mu.Lock()
	entry, ok := p.pending[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, id)
	p.mu.Unlock()

	select {
	case p.ready <- entry.task:
	case <-p.abort:
		p.drop(context.WithoutCancel(p.runCtx), entry.task)
		p.inflight.Done()
	}
}

func (p *Pool[T]) work() {
	for {
		select {
		case task := <-p.ready:
			p.run(task)
		case <-p.done:
			return
		}
	}
}

func (p *Pool[T]) run(task T) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(p.runCtx, "dispatch task panicked", slog.Any("panic", r))
		}
	}()
	p.handle(p.runCtx, task)
}

// Healthcheck reports whether the pool accepts tasks.
// Compatible with health.CheckFunc.
func (p *Pool[T]) Healthcheck() func(context.Context) error {
	return func(context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.started || p.stopping {
			return errors.Join(ErrHealthcheckFailed, ErrNotStarted)
		}
		return nil
	}
}
