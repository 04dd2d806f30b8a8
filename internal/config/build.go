package config

import (
	"fmt"
	"log/slog"

	"github.com/jzx17/gotube/pkg/fiber"
	"github.com/jzx17/gotube/pkg/retry"
	"github.com/jzx17/gotube/pkg/types"
	"github.com/jzx17/gotube/pkg/worker"
)

// NewPool creates the worker pool described by c. The pool is not started.
func (c PoolConfig) NewPool(logger *slog.Logger) (types.WorkerPool, error) {
	switch c.Kind {
	case PoolFixed:
		pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
			PoolSize:      c.Size,
			QueueSize:     c.QueueSize,
			SubmitTimeout: c.SubmitTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return pool, nil
	case PoolDynamic:
		pool, err := worker.NewDynamicWorkerPool(&worker.DynamicWorkerPoolConfig{
			MinWorkers:    c.MinWorkers,
			MaxWorkers:    c.MaxWorkers,
			QueueSize:     c.QueueSize,
			SubmitTimeout: c.SubmitTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unknown pool kind %q", c.Kind)
	}
}

// Build returns the fiber engine configuration running on exec
func (c EngineConfig) Build(exec types.Executor, logger *slog.Logger) (*fiber.EngineConfig, error) {
	backoff, err := retry.NewBackoff(c.Backoff.Kind, c.Backoff.Base, c.Backoff.MaxDelay)
	if err != nil {
		return nil, fmt.Errorf("engine backoff: %w", err)
	}

	cfg := fiber.DefaultEngineConfig()
	cfg.ID = c.ID
	cfg.Executor = exec
	cfg.Logger = logger
	cfg.SubmitBackoff = backoff
	cfg.SubmitAttempts = c.SubmitAttempts
	if c.Container != "" {
		cfg.Container = types.NewContainer(c.Container, nil)
	}
	return cfg, nil
}
