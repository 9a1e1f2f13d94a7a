package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/observability"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

type Config struct {
	Concurrency int
	QueueSize   int
}

// Pool runs fire-and-forget tasks on a fixed set of goroutines. Tasks run
// on the pool's own context, detached from the request that submitted them.
type Pool struct {
	log         *logger.Logger
	concurrency int
	tasks       chan task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
	onDone  func(name string, err error)
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

func NewPool(baseLog *logger.Logger, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		log:         baseLog.With("component", "WorkerPool"),
		concurrency: cfg.Concurrency,
		tasks:       make(chan task, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnDone registers a hook called after every task, including failed and panicked ones.
func (p *Pool) OnDone(fn func(name string, err error)) {
	p.mu.Lock()
	p.onDone = fn
	p.mu.Unlock()
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.log.Info("Starting worker pool", "concurrency", p.concurrency, "queue_size", cap(p.tasks))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.runLoop(i + 1)
	}
}

// Submit enqueues fn without blocking. It returns false when the queue is
// full or the pool is stopped; the task is then dropped.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	if p == nil || fn == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.log.Warn("Task dropped, pool stopped", "task", name)
		return false
	}
	select {
	case p.tasks <- task{name: name, run: fn}:
		return true
	default:
		p.log.Warn("Task dropped, queue full", "task", name, "queue_size", cap(p.tasks))
		return false
	}
}

// Stop rejects new tasks, drains the queue and waits for running tasks.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	close(p.tasks)
	p.mu.Unlock()

	if started {
		p.wg.Wait()
	}
	p.cancel()
	p.log.Info("Worker pool stopped")
}

func (p *Pool) runLoop(workerID int) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.execute(workerID, t)
	}
}

func (p *Pool) execute(workerID int, t task) {
	var err error
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.log.Error("Task panic", "worker_id", workerID, "task", t.name, "panic", r)
		}
		if err != nil {
			p.log.Warn("Task failed", "worker_id", workerID, "task", t.name, "error", err)
		}
		if metrics := observability.Current(); metrics != nil {
			metrics.ObserveAsyncTask(t.name, err, time.Since(start))
		}
		p.mu.RLock()
		hook := p.onDone
		p.mu.RUnlock()
		if hook != nil {
			hook(t.name, err)
		}
	}()
	err = t.run(p.ctx)
}
