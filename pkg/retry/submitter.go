package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotube/pkg/types"
)

// RetryCondition reports whether a failed submission may be retried
type RetryCondition func(error) bool

// IsOverloaded is the default retry condition: the executor was full or timed out accepting the task
func IsOverloaded(err error) bool {
	return errors.Is(err, types.ErrWorkerPoolFull) || errors.Is(err, types.ErrTimeout)
}

// SubmitterConfig configures a Submitter
type SubmitterConfig struct {
	// MaxAttempts is the total number of submissions tried, including the first
	MaxAttempts int

	// Backoff computes the wait between attempts
	Backoff BackoffStrategy

	// Retryable decides which submission errors are retried (defaults to IsOverloaded)
	Retryable RetryCondition

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// OnRetry is called before every wait (optional)
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultSubmitterConfig returns default configuration
func DefaultSubmitterConfig() *SubmitterConfig {
	return &SubmitterConfig{
		MaxAttempts: 3,
		Backoff:     NewExponentialBackoff(time.Millisecond, WithBackoffMaxDelay(50*time.Millisecond)),
		Retryable:   IsOverloaded,
		Clock:       types.NewRealClock(),
	}
}

// SubmitStats counts submitter outcomes
type SubmitStats struct {
	Submitted int64
	Retries   int64
	Exhausted int64
	Rejected  int64
}

// Submitter hands tasks to an executor, backing off while the executor is overloaded
type Submitter struct {
	exec   types.Executor
	config *SubmitterConfig

	submitted int64
	retries   int64
	exhausted int64
	rejected  int64
}

// NewSubmitter creates a submitter for exec
func NewSubmitter(exec types.Executor, config *SubmitterConfig) (*Submitter, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if config == nil {
		config = DefaultSubmitterConfig()
	}
	if config.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", config.MaxAttempts)
	}

	cfg := *config
	if cfg.Backoff == nil {
		cfg.Backoff = NewFixedBackoff(0)
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsOverloaded
	}
	cfg.Clock = types.OrRealClock(cfg.Clock)

	return &Submitter{exec: exec, config: &cfg}, nil
}

// Executor returns the wrapped executor
func (s *Submitter) Executor() types.Executor {
	return s.exec
}

// Submit submits task, retrying retryable failures until MaxAttempts is reached.
// Exhaustion returns an *ExhaustedError; a non-retryable error is returned as is.
func (s *Submitter) Submit(ctx context.Context, task types.Task) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.exec.Submit(task)
		if err == nil {
			atomic.AddInt64(&s.submitted, 1)
			return nil
		}
		if !s.config.Retryable(err) {
			atomic.AddInt64(&s.rejected, 1)
			return err
		}
		if attempt >= s.config.MaxAttempts {
			atomic.AddInt64(&s.exhausted, 1)
			return &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay := s.config.Backoff.NextDelay(attempt)
		atomic.AddInt64(&s.retries, 1)
		if s.config.OnRetry != nil {
			s.config.OnRetry(attempt, err, delay)
		}
		if delay <= 0 {
			continue
		}

		timer := s.config.Clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}

// Stats returns a snapshot of the submitter counters
func (s *Submitter) Stats() SubmitStats {
	return SubmitStats{
		Submitted: atomic.LoadInt64(&s.submitted),
		Retries:   atomic.LoadInt64(&s.retries),
		Exhausted: atomic.LoadInt64(&s.exhausted),
		Rejected:  atomic.LoadInt64(&s.rejected),
	}
}

// ExhaustedError reports a task the executor never accepted
type ExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("submission failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last submission error
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted checks if err reports an exhausted submission
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
