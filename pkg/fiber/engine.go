package fiber

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jzx17/gotube/pkg/retry"
	"github.com/jzx17/gotube/pkg/types"
	"github.com/jzx17/gotube/pkg/worker"
)

// EngineConfig contains configuration for an Engine
type EngineConfig struct {
	// ID identifies the engine in logs and traces (optional, a uuid is generated)
	ID string

	// Container is resolved by stages through ContainerFromContext (optional)
	Container types.Container

	// Executor runs fibers started with Start and pool handoffs (optional, defaults to worker.DefaultPool)
	Executor types.Executor

	// Logger receives fiber lifecycle events (optional)
	Logger *slog.Logger

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// SubmitBackoff is the wait between submissions while the executor is full
	SubmitBackoff retry.BackoffStrategy

	// SubmitAttempts bounds submissions of one run before it executes on the caller
	SubmitAttempts int
}

// DefaultEngineConfig returns default configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Clock:          types.NewRealClock(),
		SubmitBackoff:  retry.NewExponentialBackoff(time.Millisecond, retry.WithBackoffMaxDelay(20*time.Millisecond)),
		SubmitAttempts: 3,
	}
}

// Engine creates fibers and owns what they share: the container, the executor and the
// interceptors every new fiber starts with.
type Engine struct {
	id        string
	container types.Container
	executor  types.Executor
	submitter *retry.Submitter
	logger    *slog.Logger
	clock     types.Clock

	mu           sync.RWMutex
	interceptors []ContextInterceptor
	fibers       map[string]*Fiber
}

// NewEngine creates a new engine
func NewEngine(config *EngineConfig) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if config.SubmitAttempts < 0 {
		return nil, fmt.Errorf("submit attempts must not be negative, got %d", config.SubmitAttempts)
	}

	id := config.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(slog.String("engine", id))

	container := config.Container
	if container == nil {
		container = types.NewContainer(id, nil)
	}
	executor := config.Executor
	if executor == nil {
		executor = worker.DefaultPool()
	}
	clock := types.OrRealClock(config.Clock)

	attempts := config.SubmitAttempts
	if attempts == 0 {
		attempts = 1
	}
	submitter, err := retry.NewSubmitter(executor, &retry.SubmitterConfig{
		MaxAttempts: attempts,
		Backoff:     config.SubmitBackoff,
		Clock:       clock,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Debug("executor busy, retrying submission",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create submitter: %w", err)
	}

	return &Engine{
		id:        id,
		container: container,
		executor:  executor,
		submitter: submitter,
		logger:    logger,
		clock:     clock,
		fibers:    make(map[string]*Fiber),
	}, nil
}

// ID returns the engine ID
func (e *Engine) ID() string {
	return e.id
}

// Container returns the container exposed to every stage run by this engine
func (e *Engine) Container() types.Container {
	return e.container
}

// Executor returns the executor fibers are dispatched to
func (e *Engine) Executor() types.Executor {
	return e.executor
}

// Logger returns the engine logger
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Clock returns the engine clock
func (e *Engine) Clock() types.Clock {
	return e.clock
}

// SubmitStats returns the executor submission counters
func (e *Engine) SubmitStats() retry.SubmitStats {
	return e.submitter.Stats()
}

// CreateFiber returns a new fiber starting with the engine's current interceptors.
// Interceptors added to the fiber later are not seen by the engine or other fibers.
func (e *Engine) CreateFiber() *Fiber {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := newFiber(e, e.interceptors)
	e.fibers[f.id] = f
	return f
}

// AddInterceptor appends ic to the interceptors of fibers created from now on
func (e *Engine) AddInterceptor(ic ContextInterceptor) {
	if ic == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interceptors = append(e.interceptors[:len(e.interceptors):len(e.interceptors)], ic)
}

// Interceptors returns a snapshot of the engine interceptors
func (e *Engine) Interceptors() []ContextInterceptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ContextInterceptor(nil), e.interceptors...)
}

// Fibers returns a snapshot of the fibers that are neither done nor cancelled
func (e *Engine) Fibers() []*Fiber {
	e.mu.RLock()
	defer e.mu.RUnlock()

	fibers := make([]*Fiber, 0, len(e.fibers))
	for _, f := range e.fibers {
		fibers = append(fibers, f)
	}
	return fibers
}

// LiveFibers returns the number of fibers that are neither done nor cancelled
func (e *Engine) LiveFibers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fibers)
}

// CancelAll cancels every live fiber and returns how many accepted the cancel
func (e *Engine) CancelAll(mayInterrupt bool) int {
	cancelled := 0
	for _, f := range e.Fibers() {
		if f.Cancel(mayInterrupt) {
			cancelled++
		}
	}
	e.logger.Debug("engine cancelled fibers", slog.Int("count", cancelled))
	return cancelled
}

func (e *Engine) unregister(f *Fiber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.fibers, f.id)
}

// dispatch runs fn on the executor, or on the calling goroutine when the executor
// will not take it
func (e *Engine) dispatch(name string, fn func()) {
	task := worker.NewBasicTaskWithID(name, func(context.Context) error {
		fn()
		return nil
	})
	if err := e.submitter.Submit(context.Background(), task); err != nil {
		e.logger.Warn("executor rejected work, running on caller",
			slog.String("task", name),
			slog.String("error", err.Error()))
		fn()
	}
}
