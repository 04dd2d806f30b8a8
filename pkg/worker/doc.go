/*
Package worker provides the executors that fibers are dispatched onto.

# Overview

FixedWorkerPool runs a fixed number of workers draining one buffered queue.
DynamicWorkerPool starts at MinWorkers and can be resized between MinWorkers
and MaxWorkers while running. InlineExecutor runs each task on the
submitting goroutine and is used for deterministic tests.

All pools implement types.Executor, so any of them can be passed as the
executor of a fiber engine.

# Lifecycle

A pool is created stopped. Start launches its workers, Stop waits for
running tasks and leaves queued tasks in the queue for the next Start, and
Close stops the pool permanently.

Submit blocks up to the configured SubmitTimeout when the queue is full and
then returns types.ErrTimeout. SubmitWithTimeout with a zero timeout never
blocks and returns types.ErrWorkerPoolFull instead. Submitting to a pool
that is not running returns an error wrapping types.ErrPoolNotRunning.

# Failures

Task panics are recovered by the worker and reported as a *types.StageError
with Panicked set. Task errors go to the pool's ErrorHandler when one is
configured; errors the handler does not swallow are logged through the
pool's slog.Logger.

# Usage

	pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
		PoolSize:  4,
		QueueSize: 64,
	})
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}
	defer pool.Close()

	err = pool.Submit(worker.NewBasicTask(func(ctx context.Context) error {
		return process(ctx)
	}))
*/
package worker
