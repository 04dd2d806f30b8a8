// Package types defines the shared interfaces and types of the tube runtime
package types

import (
	"context"
	"time"
)

// Task defines a unit of work accepted by an Executor
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (optional, for tracking)
	ID() string

	// Priority returns the task priority (optional, for sorting)
	Priority() int
}

// Executor accepts tasks for execution, possibly on another goroutine
type Executor interface {
	// Submit submits a task for execution
	Submit(task Task) error
}

// WorkerPool defines the worker pool interface
type WorkerPool interface {
	Executor

	// SubmitWithTimeout submits a task to the worker pool with timeout
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// Start starts the worker pool
	Start(ctx context.Context) error

	// Stop stops the worker pool
	Stop() error

	// Close closes the worker pool and releases resources
	Close() error

	// Size returns the size of the worker pool
	Size() int

	// Stats returns worker pool statistics
	Stats() WorkerPoolStats
}

// DynamicWorkerPool defines the extended interface for dynamic worker pools
type DynamicWorkerPool interface {
	WorkerPool

	// GetMinWorkers returns the minimum number of workers
	GetMinWorkers() int

	// GetMaxWorkers returns the maximum number of workers
	GetMaxWorkers() int

	// GetCurrentWorkers returns the current number of workers
	GetCurrentWorkers() int

	// ScaleUp scales up to the specified number of workers
	ScaleUp(targetSize int) error

	// ScaleDown scales down to the specified number of workers
	ScaleDown(targetSize int) error
}

// WorkerPoolStats defines basic statistics for worker pools
type WorkerPoolStats struct {
	// PoolSize is the size of the pool
	PoolSize int

	// ActiveWorkers is the number of active worker goroutines
	ActiveWorkers int

	// QueueSize is the current number of tasks in the queue
	QueueSize int

	// QueueCapacity is the capacity of the queue
	QueueCapacity int
}

// ErrorHandler is invoked with errors returned by tasks that nobody else observes
type ErrorHandler func(error) error
