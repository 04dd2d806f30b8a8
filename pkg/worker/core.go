package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotube/pkg/types"
)

const (
	poolStopped int32 = iota
	poolRunning
	poolClosed
)

// poolCore holds the queue, worker set and lifecycle shared by the pool implementations
type poolCore struct {
	kind          string
	taskChan      chan types.Task
	submitTimeout time.Duration
	clock         types.Clock
	logger        *slog.Logger
	errorHandler  types.ErrorHandler

	state  int32
	ctx    context.Context
	cancel context.CancelFunc

	workers      []*Worker
	nextWorkerID int
	mu           sync.RWMutex
}

func newPoolCore(kind string, queueSize int, submitTimeout time.Duration, clock types.Clock,
	logger *slog.Logger, handler types.ErrorHandler) *poolCore {
	if logger == nil {
		logger = discardLogger
	}
	return &poolCore{
		kind:          kind,
		taskChan:      make(chan types.Task, queueSize),
		submitTimeout: submitTimeout,
		clock:         types.OrRealClock(clock),
		logger:        logger,
		errorHandler:  handler,
	}
}

// newWorker creates a worker on the shared queue; caller holds mu
func (p *poolCore) newWorker() *Worker {
	w := NewWorkerWithClock(p.nextWorkerID, p.taskChan, p.clock)
	p.nextWorkerID++
	w.SetLogger(p.logger)
	if p.errorHandler != nil {
		w.SetErrorHandler(p.errorHandler)
	}
	return w
}

func (p *poolCore) start(ctx context.Context, size int) error {
	// mu is taken first so submitters that observe the running state also observe ctx
	p.mu.Lock()
	defer p.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&p.state, poolStopped, poolRunning) {
		if atomic.LoadInt32(&p.state) == poolRunning {
			return fmt.Errorf("%s is already running", p.kind)
		}
		return fmt.Errorf("%s is closed", p.kind)
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.workers = make([]*Worker, 0, size)
	for i := 0; i < size; i++ {
		w := p.newWorker()
		p.workers = append(p.workers, w)
		go w.Start(p.ctx)
	}

	p.logger.Debug("worker pool started", slog.String("pool", p.kind), slog.Int("workers", size))
	return nil
}

func (p *poolCore) submit(task types.Task, timeout time.Duration) error {
	if state := atomic.LoadInt32(&p.state); state != poolRunning {
		if state == poolStopped {
			return fmt.Errorf("%s is not started: %w", p.kind, types.ErrPoolNotRunning)
		}
		return fmt.Errorf("%s is closed: %w", p.kind, types.ErrPoolNotRunning)
	}
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	p.mu.RLock()
	done := p.ctx.Done()
	p.mu.RUnlock()

	if timeout <= 0 {
		select {
		case p.taskChan <- task:
			return nil
		default:
			return types.ErrWorkerPoolFull
		}
	}

	timer := p.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.taskChan <- task:
		return nil
	case <-timer.C():
		return types.ErrTimeout
	case <-done:
		return fmt.Errorf("%s is stopping: %w", p.kind, types.ErrPoolNotRunning)
	}
}

// stop cancels the workers and waits for running tasks; queued tasks stay queued
func (p *poolCore) stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, poolRunning, poolStopped) {
		if atomic.LoadInt32(&p.state) == poolStopped {
			return fmt.Errorf("%s is not running", p.kind)
		}
		return fmt.Errorf("%s is closed", p.kind)
	}

	p.mu.Lock()
	p.cancel()
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	var wg sync.WaitGroup
	var failed int32
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Stop(); err != nil {
				atomic.AddInt32(&failed, 1)
				p.logger.Warn("worker did not stop", slog.String("pool", p.kind), slog.String("error", err.Error()))
			}
		}(w)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%s: %d workers did not stop in time", p.kind, failed)
	}
	return nil
}

func (p *poolCore) close() error {
	if atomic.LoadInt32(&p.state) == poolClosed {
		return nil
	}
	var err error
	if atomic.LoadInt32(&p.state) == poolRunning {
		err = p.stop()
	}
	atomic.StoreInt32(&p.state, poolClosed)
	return err
}

func (p *poolCore) size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

func (p *poolCore) stats(capacity int) types.WorkerPoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	active := 0
	for _, w := range p.workers {
		if w.State() == WorkerStateWorking {
			active++
		}
	}

	return types.WorkerPoolStats{
		PoolSize:      len(p.workers),
		ActiveWorkers: active,
		QueueSize:     len(p.taskChan),
		QueueCapacity: capacity,
	}
}

func (p *poolCore) workerStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}

// IsRunning checks if the worker pool is running
func (p *poolCore) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == poolRunning
}

// IsClosed checks if the worker pool is closed
func (p *poolCore) IsClosed() bool {
	return atomic.LoadInt32(&p.state) == poolClosed
}

// QueueLength gets the current queue length
func (p *poolCore) QueueLength() int {
	return len(p.taskChan)
}
