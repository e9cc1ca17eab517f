// Package worker runs task submissions on a bounded set of goroutines so
// callers do not block on broker I/O.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/podushkina/taskdispatch/internal/dispatch"
)

var (
	ErrPoolFull   = errors.New("send pool is full")
	ErrPoolClosed = errors.New("send pool is closed")
	ErrNoTask     = errors.New("invocation has no task")
	ErrPanic      = errors.New("send panicked")
)

type Invocation struct {
	Task   *dispatch.Task
	Args   []any
	Kwargs map[string]any
}

// Result is the outcome of one submitted invocation.
type Result struct {
	ID  string
	Err error
}

type job struct {
	ctx  context.Context
	inv  Invocation
	done chan Result
}

type Pool struct {
	jobs   chan job
	count  int
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(count, queueSize int, logger *slog.Logger) *Pool {
	if count <= 0 {
		count = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		jobs:   make(chan job, queueSize),
		count:  count,
		logger: logger.With("component", "send_pool"),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("started send workers", "count", p.count)
}

// Submit queues inv for sending. The returned channel receives exactly one
// Result. Submit never blocks: a full queue yields ErrPoolFull.
func (p *Pool) Submit(ctx context.Context, inv Invocation) (<-chan Result, error) {
	if inv.Task == nil {
		return nil, ErrNoTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	j := job{ctx: ctx, inv: inv, done: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		return j.done, nil
	default:
		return nil, fmt.Errorf("%w: capacity %d reached", ErrPoolFull, cap(p.jobs))
	}
}

// Stop refuses new submissions, waits for the workers and fails any job
// still queued with ErrPoolClosed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()

	for j := range p.jobs {
		j.done <- Result{Err: ErrPoolClosed}
	}
	p.logger.Info("all send workers stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("send worker shutting down", "worker_id", id)
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(id, j)
		}
	}
}

func (p *Pool) process(workerID int, j job) {
	var res Result
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("send panicked",
				"worker_id", workerID,
				"task", j.inv.Task.Name(),
				"panic", r)
			res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		j.done <- res
	}()

	res.ID, res.Err = j.inv.Task.Delay(j.ctx, j.inv.Args, j.inv.Kwargs)
	if res.Err != nil {
		p.logger.Error("send failed",
			"worker_id", workerID,
			"namespace", j.inv.Task.Namespace().Name(),
			"task", j.inv.Task.Name(),
			"error", res.Err)
	}
}
