package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool executes tasks asynchronously on a fixed set of workers.
type Pool struct {
	workerCount int
	queueSize   int

	mu       sync.RWMutex // guards queue lifecycle against Submit
	queue    chan poolTask
	running  atomic.Bool
	group    *errgroup.Group
	overflow sync.WaitGroup

	executor *Executor

	// Stats
	submitted   atomic.Uint64
	processed   atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	overflowed  atomic.Uint64
	totalTimeNs atomic.Int64
}

type poolTask struct {
	ctx  context.Context
	task Task
}

// NewPool creates a worker pool with the given options.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		workerCount: 8,
		queueSize:   1024,
		executor:    NewExecutor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithQueueSize sets the task queue capacity.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// Start starts the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}
	p.queue = make(chan poolTask, p.queueSize)
	p.group = new(errgroup.Group)
	p.running.Store(true)

	for i := 0; i < p.workerCount; i++ {
		p.group.Go(p.worker)
	}
	return nil
}

// Stop stops the pool gracefully: already-submitted tasks complete, new
// submissions fail with ErrNotRunning. It waits for in-flight work until
// the context is cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Swap(false) {
		p.mu.Unlock()
		return ErrNotRunning
	}
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		p.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues a task for asynchronous execution. Submission order is
// preserved through the queue. A full queue does not reject or drop the
// task; it runs on a one-off tracked goroutine instead.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		return ErrNotRunning
	}
	p.submitted.Add(1)

	select {
	case p.queue <- poolTask{ctx: ctx, task: task}:
	default:
		p.overflowed.Add(1)
		p.overflow.Add(1)
		go func() {
			defer p.overflow.Done()
			p.execute(poolTask{ctx: ctx, task: task})
		}()
	}
	return nil
}

func (p *Pool) worker() error {
	for t := range p.queue {
		p.execute(t)
	}
	return nil
}

func (p *Pool) execute(t poolTask) {
	res := p.executor.run(t.ctx, t.task)

	p.processed.Add(1)
	p.totalTimeNs.Add(res.Duration.Nanoseconds())
	switch {
	case res.Panicked:
		p.panicked.Add(1)
	case res.Err != nil:
		p.failed.Add(1)
	default:
		p.succeeded.Add(1)
	}
}

// QueueDepth returns the number of tasks waiting in the queue. During a
// Stop the depth keeps falling as workers drain the remaining tasks, so
// drain progress stays observable.
func (p *Pool) QueueDepth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.queue)
}

// IsRunning reports whether the pool is accepting tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// PoolStats contains pool statistics.
type PoolStats struct {
	// Submitted is the total number of tasks accepted.
	Submitted uint64

	// Processed is the number of tasks that have finished executing.
	Processed uint64

	// Succeeded is the number of tasks that completed without error.
	Succeeded uint64

	// Failed is the number of tasks that returned errors.
	Failed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Overflowed is the number of tasks run outside the queue because it
	// was full.
	Overflowed uint64

	// QueueDepth is the current number of queued tasks.
	QueueDepth int

	// TotalTimeNs is the cumulative task execution time in nanoseconds.
	TotalTimeNs int64
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted:   p.submitted.Load(),
		Processed:   p.processed.Load(),
		Succeeded:   p.succeeded.Load(),
		Failed:      p.failed.Load(),
		Panicked:    p.panicked.Load(),
		Overflowed:  p.overflowed.Load(),
		QueueDepth:  p.QueueDepth(),
		TotalTimeNs: p.totalTimeNs.Load(),
	}
}
