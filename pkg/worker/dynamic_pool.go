package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotube/pkg/types"
)

// DynamicWorkerPoolConfig contains configuration for dynamic worker pool
type DynamicWorkerPoolConfig struct {
	// MinWorkers is the minimum number of workers
	MinWorkers int

	// MaxWorkers is the maximum number of workers
	MaxWorkers int

	// QueueSize is the task queue size
	QueueSize int

	// SubmitTimeout is the task submission timeout
	SubmitTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives task failures (optional)
	Logger *slog.Logger

	// ErrorHandler handles worker errors
	ErrorHandler types.ErrorHandler
}

// DefaultDynamicWorkerPoolConfig returns default configuration
func DefaultDynamicWorkerPoolConfig() *DynamicWorkerPoolConfig {
	return &DynamicWorkerPoolConfig{
		MinWorkers:    2,
		MaxWorkers:    runtime.NumCPU() * 2,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
		Clock:         types.NewRealClock(),
	}
}

// DynamicWorkerPool is a worker pool whose size can change while it runs
type DynamicWorkerPool struct {
	*poolCore
	config *DynamicWorkerPoolConfig
}

var _ types.DynamicWorkerPool = (*DynamicWorkerPool)(nil)

// NewDynamicWorkerPool creates a new dynamic worker pool
func NewDynamicWorkerPool(config *DynamicWorkerPoolConfig) (*DynamicWorkerPool, error) {
	if config == nil {
		config = DefaultDynamicWorkerPoolConfig()
	}

	if config.MinWorkers <= 0 {
		return nil, fmt.Errorf("min workers must be positive, got %d", config.MinWorkers)
	}
	if config.MaxWorkers < config.MinWorkers {
		return nil, fmt.Errorf("max workers (%d) must be >= min workers (%d)",
			config.MaxWorkers, config.MinWorkers)
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}

	return &DynamicWorkerPool{
		poolCore: newPoolCore("dynamic worker pool", config.QueueSize, config.SubmitTimeout,
			config.Clock, config.Logger, config.ErrorHandler),
		config: config,
	}, nil
}

// Start starts the minimum number of workers
func (p *DynamicWorkerPool) Start(ctx context.Context) error {
	return p.start(ctx, p.config.MinWorkers)
}

// Submit submits a task to the worker pool
func (p *DynamicWorkerPool) Submit(task types.Task) error {
	return p.submit(task, p.submitTimeout)
}

// SubmitWithTimeout submits a task with timeout
func (p *DynamicWorkerPool) SubmitWithTimeout(task types.Task, timeout time.Duration) error {
	return p.submit(task, timeout)
}

// Stop stops the worker pool
func (p *DynamicWorkerPool) Stop() error {
	return p.stop()
}

// Close stops the worker pool; a closed pool cannot be restarted
func (p *DynamicWorkerPool) Close() error {
	return p.close()
}

// Size returns the current number of workers
func (p *DynamicWorkerPool) Size() int {
	return p.size()
}

// Stats returns basic worker pool statistics
func (p *DynamicWorkerPool) Stats() types.WorkerPoolStats {
	return p.stats(p.config.QueueSize)
}

// GetWorkerStats returns statistics for all workers
func (p *DynamicWorkerPool) GetWorkerStats() []WorkerStats {
	return p.workerStats()
}

// GetMinWorkers returns the minimum number of workers
func (p *DynamicWorkerPool) GetMinWorkers() int {
	return p.config.MinWorkers
}

// GetMaxWorkers returns the maximum number of workers
func (p *DynamicWorkerPool) GetMaxWorkers() int {
	return p.config.MaxWorkers
}

// GetCurrentWorkers returns the current number of workers
func (p *DynamicWorkerPool) GetCurrentWorkers() int {
	return p.size()
}

// ScaleUp grows the pool to targetSize workers
func (p *DynamicWorkerPool) ScaleUp(targetSize int) error {
	if targetSize > p.config.MaxWorkers {
		return fmt.Errorf("target size %d exceeds max workers %d", targetSize, p.config.MaxWorkers)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if atomic.LoadInt32(&p.state) != poolRunning {
		return fmt.Errorf("dynamic worker pool is not started: %w", types.ErrPoolNotRunning)
	}
	current := len(p.workers)
	if targetSize <= current {
		return fmt.Errorf("target size %d is not greater than current size %d", targetSize, current)
	}

	for i := current; i < targetSize; i++ {
		w := p.newWorker()
		p.workers = append(p.workers, w)
		go w.Start(p.ctx)
	}

	p.logger.Debug("worker pool scaled up", slog.Int("from", current), slog.Int("to", targetSize))
	return nil
}

// ScaleDown shrinks the pool to targetSize workers.
// Removed workers finish the task they are running before exiting.
func (p *DynamicWorkerPool) ScaleDown(targetSize int) error {
	if targetSize < p.config.MinWorkers {
		return fmt.Errorf("target size %d is less than min workers %d", targetSize, p.config.MinWorkers)
	}

	p.mu.Lock()
	current := len(p.workers)
	if targetSize >= current {
		p.mu.Unlock()
		return fmt.Errorf("target size %d is not less than current size %d", targetSize, current)
	}
	removed := append([]*Worker(nil), p.workers[targetSize:]...)
	p.workers = p.workers[:targetSize]
	p.mu.Unlock()

	for _, w := range removed {
		go func(w *Worker) {
			if err := w.Stop(); err != nil {
				p.logger.Warn("worker did not stop", slog.Int("worker", w.ID()), slog.String("error", err.Error()))
			}
		}(w)
	}

	p.logger.Debug("worker pool scaled down", slog.Int("from", current), slog.Int("to", targetSize))
	return nil
}
