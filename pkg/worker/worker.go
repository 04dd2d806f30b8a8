package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotube/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker is a single goroutine draining a shared task queue
type Worker struct {
	id    int
	state int32 // atomic WorkerState
	tasks <-chan types.Task
	quit  chan struct{}
	done  chan struct{}

	stopOnce sync.Once

	// statistics
	totalProcessed int64
	totalFailed    int64
	lastTaskTime   int64 // Unix nanosecond timestamp

	errorHandler types.ErrorHandler
	logger       *slog.Logger
	clock        types.Clock
	mu           sync.RWMutex
}

// NewWorker creates a new Worker with default real clock
func NewWorker(id int, tasks <-chan types.Task) *Worker {
	return NewWorkerWithClock(id, tasks, types.NewRealClock())
}

// NewWorkerWithClock creates a new Worker with specified clock
func NewWorkerWithClock(id int, tasks <-chan types.Task, clock types.Clock) *Worker {
	return &Worker{
		id:     id,
		state:  int32(WorkerStateIdle),
		tasks:  tasks,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		clock:  types.OrRealClock(clock),
		logger: discardLogger,
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// SetErrorHandler sets the handler receiving task errors
func (w *Worker) SetErrorHandler(handler types.ErrorHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorHandler = handler
}

// SetLogger sets the logger used for task failures
func (w *Worker) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = discardLogger
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = logger
}

// Start runs the worker loop until ctx is done or Stop is called
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case task, ok := <-w.tasks:
			if !ok {
				return
			}
			w.processTask(ctx, task)
		}
	}
}

// processTask processes a single task
func (w *Worker) processTask(ctx context.Context, task types.Task) {
	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))

	start := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, start.UnixNano())

	err := w.executeTask(ctx, task)
	if err == nil {
		atomic.AddInt64(&w.totalProcessed, 1)
		return
	}

	atomic.AddInt64(&w.totalFailed, 1)

	w.mu.RLock()
	handler, logger := w.errorHandler, w.logger
	w.mu.RUnlock()

	if handler != nil {
		err = handler(err)
	}
	if err != nil {
		logger.Warn("task failed",
			slog.Int("worker", w.id),
			slog.String("task", task.ID()),
			slog.Duration("elapsed", w.clock.Since(start)),
			slog.String("error", err.Error()))
	}
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(ctx context.Context, task types.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			err = &types.StageError{
				Stage:    fmt.Sprintf("worker-%d/%s", w.id, task.ID()),
				Phase:    types.PhaseRequest,
				Cause:    types.PanicError(r),
				Panicked: true,
				Stack:    string(buf[:n]),
			}
		}
	}()

	return task.Execute(ctx)
}

// Stop stops the Worker and waits for its current task to finish
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() { close(w.quit) })

	select {
	case <-w.done:
		return nil
	case <-w.clock.After(5 * time.Second):
		return fmt.Errorf("worker %d stop timeout", w.id)
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastTaskTime:   time.Unix(0, atomic.LoadInt64(&w.lastTaskTime)),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is active
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateWorking
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}
