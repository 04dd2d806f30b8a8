package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jzx17/gotube/pkg/types"
)

// FixedWorkerPoolConfig defines configuration for fixed worker pool
type FixedWorkerPoolConfig struct {
	// PoolSize is the size of the worker pool
	PoolSize int

	// QueueSize is the task queue size
	QueueSize int

	// SubmitTimeout is the task submission timeout
	SubmitTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives task failures (optional)
	Logger *slog.Logger

	// ErrorHandler is the error handler
	ErrorHandler types.ErrorHandler
}

// DefaultFixedWorkerPoolConfig returns default configuration
func DefaultFixedWorkerPoolConfig() *FixedWorkerPoolConfig {
	return &FixedWorkerPoolConfig{
		PoolSize:      10,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
		Clock:         types.NewRealClock(),
	}
}

// FixedWorkerPool implements a fixed-size worker pool
type FixedWorkerPool struct {
	*poolCore
	config *FixedWorkerPoolConfig
}

var _ types.WorkerPool = (*FixedWorkerPool)(nil)

// NewFixedWorkerPool creates a new fixed worker pool
func NewFixedWorkerPool(config *FixedWorkerPoolConfig) (*FixedWorkerPool, error) {
	if config == nil {
		config = DefaultFixedWorkerPoolConfig()
	}

	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", config.PoolSize)
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}

	return &FixedWorkerPool{
		poolCore: newPoolCore("fixed worker pool", config.QueueSize, config.SubmitTimeout,
			config.Clock, config.Logger, config.ErrorHandler),
		config: config,
	}, nil
}

// Start starts the worker pool
func (p *FixedWorkerPool) Start(ctx context.Context) error {
	return p.start(ctx, p.config.PoolSize)
}

// Submit submits a task to the worker pool
func (p *FixedWorkerPool) Submit(task types.Task) error {
	return p.submit(task, p.submitTimeout)
}

// SubmitWithTimeout submits a task to the worker pool with timeout
func (p *FixedWorkerPool) SubmitWithTimeout(task types.Task, timeout time.Duration) error {
	return p.submit(task, timeout)
}

// Stop stops the worker pool
func (p *FixedWorkerPool) Stop() error {
	return p.stop()
}

// Close stops the worker pool; a closed pool cannot be restarted
func (p *FixedWorkerPool) Close() error {
	return p.close()
}

// Size returns the configured worker pool size
func (p *FixedWorkerPool) Size() int {
	return p.config.PoolSize
}

// Stats gets basic worker pool statistics
func (p *FixedWorkerPool) Stats() types.WorkerPoolStats {
	stats := p.stats(p.config.QueueSize)
	stats.PoolSize = p.config.PoolSize
	return stats
}

// GetWorkerStats gets statistics of all Workers
func (p *FixedWorkerPool) GetWorkerStats() []WorkerStats {
	return p.workerStats()
}

// QueueCapacity gets the queue capacity
func (p *FixedWorkerPool) QueueCapacity() int {
	return p.config.QueueSize
}

var (
	defaultPool     *FixedWorkerPool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the process-wide pool used by engines configured without an executor.
// It is started on first use and never stopped.
func DefaultPool() *FixedWorkerPool {
	defaultPoolOnce.Do(func() {
		size := runtime.NumCPU() * 2
		pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
			PoolSize:      size,
			QueueSize:     size * 64,
			SubmitTimeout: time.Second,
		})
		if err != nil {
			panic(err)
		}
		if err := pool.Start(context.Background()); err != nil {
			panic(err)
		}
		defaultPool = pool
	})
	return defaultPool
}
