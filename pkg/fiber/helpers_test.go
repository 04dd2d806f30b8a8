package fiber

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/gotube/pkg/tube"
	"github.com/jzx17/gotube/pkg/types"
	"github.com/jzx17/gotube/pkg/worker"
	"github.com/stretchr/testify/require"
)

type callType string

const (
	callRequest   callType = "request"
	callResponse  callType = "response"
	callException callType = "exception"
)

type tubeCall struct {
	kind      callType
	container types.Container
	fiber     *Fiber
}

// recorder is a filter stage that records every handler call.
// Without a Next it behaves as a terminal returning the request.
type recorder struct {
	tube.Filter
	name string

	onRequest   func(ctx context.Context, p *types.Packet) tube.NextAction
	onResponse  func(ctx context.Context, p *types.Packet) tube.NextAction
	onException func(ctx context.Context, err error) tube.NextAction

	mu    sync.Mutex
	calls []tubeCall
}

func newRecorder(name string, next tube.Tube) *recorder {
	return &recorder{Filter: tube.NewFilter(next), name: name}
}

func (r *recorder) Name() string {
	return r.name
}

func (r *recorder) record(ctx context.Context, kind callType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tubeCall{
		kind:      kind,
		container: ContainerFromContext(ctx),
		fiber:     FromContext(ctx),
	})
}

func (r *recorder) ProcessRequest(ctx context.Context, p *types.Packet) tube.NextAction {
	r.record(ctx, callRequest)
	if r.onRequest != nil {
		return r.onRequest(ctx, p)
	}
	if r.Next == nil {
		return tube.ReturnWith(p)
	}
	return r.Filter.ProcessRequest(ctx, p)
}

func (r *recorder) ProcessResponse(ctx context.Context, p *types.Packet) tube.NextAction {
	r.record(ctx, callResponse)
	if r.onResponse != nil {
		return r.onResponse(ctx, p)
	}
	return r.Filter.ProcessResponse(ctx, p)
}

func (r *recorder) ProcessException(ctx context.Context, err error) tube.NextAction {
	r.record(ctx, callException)
	if r.onException != nil {
		return r.onException(ctx, err)
	}
	return r.Filter.ProcessException(ctx, err)
}

func (r *recorder) Copy(c *tube.Cloner) tube.Tube {
	cp := &recorder{
		name:        r.name,
		onRequest:   r.onRequest,
		onResponse:  r.onResponse,
		onException: r.onException,
	}
	c.Add(r, cp)
	cp.Filter = r.CopyNext(c)
	return cp
}

func (r *recorder) kinds() []callType {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]callType, len(r.calls))
	for i, c := range r.calls {
		kinds[i] = c.kind
	}
	return kinds
}

func (r *recorder) containers() []types.Container {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Container, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.container
	}
	return out
}

// chain builds a → b → c and returns the three stages
func chain() (*recorder, *recorder, *recorder) {
	c := newRecorder("C", nil)
	b := newRecorder("B", c)
	a := newRecorder("A", b)
	return a, b, c
}

func seq(kinds ...callType) []callType {
	if kinds == nil {
		return []callType{}
	}
	return kinds
}

var testContainer = types.NewContainer("test-container", map[any]any{"region": "eu"})

// newInlineEngine returns an engine whose executor runs work on the submitting goroutine
func newInlineEngine(t *testing.T) (*Engine, *markingExecutor) {
	t.Helper()
	exec := &markingExecutor{inline: worker.NewInlineExecutor(context.Background())}
	e, err := NewEngine(&EngineConfig{
		ID:        "engine1",
		Container: testContainer,
		Executor:  exec,
	})
	require.NoError(t, err)
	return e, exec
}

// newPoolEngine returns an engine backed by a started fixed pool
func newPoolEngine(t *testing.T) *Engine {
	t.Helper()
	pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
		PoolSize:      4,
		QueueSize:     64,
		SubmitTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Close() })

	e, err := NewEngine(&EngineConfig{
		ID:        "engine1",
		Container: testContainer,
		Executor:  pool,
	})
	require.NoError(t, err)
	return e
}

// markingExecutor runs tasks inline and reports whether a task is currently inside it
type markingExecutor struct {
	inline *worker.InlineExecutor
	mu     sync.Mutex
	depth  int
}

func (m *markingExecutor) Submit(task types.Task) error {
	m.mu.Lock()
	m.depth++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.depth--
		m.mu.Unlock()
	}()
	return m.inline.Submit(task)
}

func (m *markingExecutor) inExecutor() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth > 0
}

func (m *markingExecutor) executed() int64 {
	return m.inline.Executed()
}

// rejectingExecutor never accepts work
type rejectingExecutor struct {
	mu    sync.Mutex
	calls int
}

func (r *rejectingExecutor) Submit(types.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return types.ErrWorkerPoolFull
}

// countingInterceptor counts the run segments it wraps
type countingInterceptor struct {
	mu    sync.Mutex
	count int
}

func (c *countingInterceptor) Intercept(ctx context.Context, f *Fiber, work Work) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	work(ctx)
}

func (c *countingInterceptor) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
