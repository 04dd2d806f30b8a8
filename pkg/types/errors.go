// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrFiberNotSuspended indicates a resume on a fiber that is not suspended
	ErrFiberNotSuspended = errors.New("fiber is not suspended")

	// ErrFiberCancelled indicates an operation on a cancelled fiber
	ErrFiberCancelled = errors.New("fiber is cancelled")

	// ErrFiberStarted indicates a second start of the same fiber
	ErrFiberStarted = errors.New("fiber is already started")

	// ErrFiberDone indicates an operation on a completed fiber
	ErrFiberDone = errors.New("fiber is done")

	// ErrInvalidNextAction indicates a stage returned a directive the scheduler cannot execute
	ErrInvalidNextAction = errors.New("invalid next action")

	// ErrNilError indicates a stage threw a nil error
	ErrNilError = errors.New("stage threw a nil error")

	// ErrInterceptorSkipped indicates an interceptor returned without running the work
	ErrInterceptorSkipped = errors.New("interceptor did not execute work")

	// ErrNilTube indicates a fiber was started without a pipeline
	ErrNilTube = errors.New("pipeline head is nil")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrWorkerPoolFull indicates the worker pool is full
	ErrWorkerPoolFull = errors.New("worker pool is full")

	// ErrPoolNotRunning indicates a submission to a pool that is stopped or closed
	ErrPoolNotRunning = errors.New("worker pool is not running")
)

// Phase names the handler a stage was executing
type Phase string

const (
	PhaseRequest   Phase = "request"
	PhaseResponse  Phase = "response"
	PhaseException Phase = "exception"
	PhaseHandoff   Phase = "handoff"
)

// StageError represents a failure raised while a stage handler was running
type StageError struct {
	// Stage is the name of the stage
	Stage string

	// Phase is the handler that failed
	Phase Phase

	// Cause is the underlying error
	Cause error

	// Panicked reports whether the failure was a recovered panic
	Panicked bool

	// Stack holds the goroutine stack for recovered panics
	Stack string
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("stage %s panicked during %s: %v", e.Stage, e.Phase, e.Cause)
	}
	return fmt.Sprintf("stage %s failed during %s: %v", e.Stage, e.Phase, e.Cause)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError creates a new stage error
func NewStageError(stage string, phase Phase, cause error) *StageError {
	return &StageError{
		Stage: stage,
		Phase: phase,
		Cause: cause,
	}
}

// PanicError converts a recovered panic value into an error
func PanicError(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("panic: %s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

// UsageError reports misuse of the fiber API by its caller
type UsageError struct {
	// Op is the operation that was called
	Op string

	// Fiber is the ID of the fiber
	Fiber string

	// State is the fiber state at the time of the call
	State string

	// Err is the sentinel describing the misuse
	Err error
}

// Error implements the error interface
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s on fiber %s in state %s: %v", e.Op, e.Fiber, e.State, e.Err)
}

// Unwrap returns the underlying error
func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError checks if an error reports API misuse
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
