// Package worker provides worker pool implementations
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/jzx17/gotube/pkg/types"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// BasicTask is the basic implementation of Task interface
type BasicTask struct {
	id       string
	priority int
	fn       func(ctx context.Context) error
}

// NewBasicTask creates a new basic task
func NewBasicTask(fn func(ctx context.Context) error) *BasicTask {
	id := atomic.AddInt64(&taskIDCounter, 1)
	return &BasicTask{
		id: fmt.Sprintf("task-%d", id),
		fn: fn,
	}
}

// NewBasicTaskWithID creates a basic task with custom ID
func NewBasicTaskWithID(id string, fn func(ctx context.Context) error) *BasicTask {
	return &BasicTask{
		id: id,
		fn: fn,
	}
}

// Execute executes the task
func (t *BasicTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *BasicTask) ID() string {
	return t.id
}

// Priority returns the task priority
func (t *BasicTask) Priority() int {
	return t.priority
}

// SetPriority sets the task priority
func (t *BasicTask) SetPriority(priority int) {
	t.priority = priority
}

// InlineExecutor runs every submitted task on the submitting goroutine
type InlineExecutor struct {
	ctx      context.Context
	executed int64
}

// NewInlineExecutor creates an inline executor passing ctx to tasks; nil means Background
func NewInlineExecutor(ctx context.Context) *InlineExecutor {
	if ctx == nil {
		ctx = context.Background()
	}
	return &InlineExecutor{ctx: ctx}
}

// Submit executes the task before returning; the task's error is returned to the caller
func (e *InlineExecutor) Submit(task types.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	atomic.AddInt64(&e.executed, 1)
	return task.Execute(e.ctx)
}

// Executed returns the number of tasks run so far
func (e *InlineExecutor) Executed() int64 {
	return atomic.LoadInt64(&e.executed)
}
