package fiber

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jzx17/gotube/pkg/tube"
	"github.com/jzx17/gotube/pkg/types"
)

// State defines the lifecycle state of a Fiber
type State int32

const (
	// StateCreated is a fiber that has not been started
	StateCreated State = iota
	// StateRunning is a fiber whose stages are being driven
	StateRunning
	// StateSuspended is a fiber waiting for Resume
	StateSuspended
	// StateDone is a fiber that delivered its outcome
	StateDone
	// StateCancelled is a fiber that was cancelled and delivers nothing
	StateCancelled
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeSuspended
	outcomeReenter
)

// parking describes the handoff of a fiber that just suspended
type parking struct {
	stage     string
	onSuspend tube.SuspendFunc
	onPool    bool
}

// resumption is a resume that arrived while the fiber was still parking
type resumption struct {
	packet *types.Packet
	err    error
	ret    bool
}

// Fiber is the suspendable execution of one packet through a pipeline.
//
// The pending stages are kept on an explicit stack so a run can stop at a suspend point
// and continue later on another goroutine. At most one goroutine drives a fiber at a time.
type Fiber struct {
	id     string
	engine *Engine

	mu        sync.Mutex
	state     State
	inline    bool
	cursor    tube.Tube
	stack     []tube.Tube
	packet    *types.Packet
	err       error
	cancelReq bool
	interrupt bool
	parking   bool
	queued    *resumption
	callback  CompletionCallback
	started   time.Time

	listeners    []Listener
	interceptors []ContextInterceptor
	icVersion    int

	ctx      context.Context
	cancel   context.CancelFunc
	stopWait func() bool
}

func newFiber(e *Engine, interceptors []ContextInterceptor) *Fiber {
	return &Fiber{
		id:           uuid.NewString(),
		engine:       e,
		state:        StateCreated,
		interceptors: interceptors,
	}
}

// ID returns the fiber ID
func (f *Fiber) ID() string {
	return f.id
}

// Engine returns the engine that created the fiber
func (f *Fiber) Engine() *Engine {
	return f.engine
}

// State returns the current state
func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Packet returns the packet most recently in flight
func (f *Fiber) Packet() *types.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.packet
}

// Err returns the error in flight, or the failure delivered by a completed fiber
func (f *Fiber) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// String returns a readable form of the fiber
func (f *Fiber) String() string {
	return fmt.Sprintf("fiber-%s(%s)", f.id, f.State())
}

// AddListener registers l for suspend and resume notifications
func (f *Fiber) AddListener(l Listener) {
	if l == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners[:len(f.listeners):len(f.listeners)], l)
}

// RemoveListener unregisters l
func (f *Fiber) RemoveListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := make([]Listener, 0, len(f.listeners))
	for _, existing := range f.listeners {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	f.listeners = kept
}

// Listeners returns a snapshot of the registered listeners
func (f *Fiber) Listeners() []Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Listener(nil), f.listeners...)
}

// AddInterceptor appends ic to this fiber's interceptors.
// A running fiber picks it up from the stage after the current one.
func (f *Fiber) AddInterceptor(ic ContextInterceptor) {
	if ic == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interceptors = append(f.interceptors[:len(f.interceptors):len(f.interceptors)], ic)
	f.icVersion++
}

// Interceptors returns a snapshot of this fiber's interceptors
func (f *Fiber) Interceptors() []ContextInterceptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ContextInterceptor(nil), f.interceptors...)
}

// Start runs p through the pipeline at head on the engine executor.
// cb may be nil. The fiber's stages see a context derived from ctx, and cancelling ctx
// cancels the fiber.
func (f *Fiber) Start(ctx context.Context, head tube.Tube, p *types.Packet, cb CompletionCallback) error {
	if err := f.begin(ctx, head, p, cb, false); err != nil {
		return err
	}
	f.engine.dispatch("fiber-"+f.id, f.run)
	return nil
}

// StartSync is Start on the calling goroutine. It returns once the fiber is done or
// suspended, and later resumes of the fiber also run on the resuming goroutine.
func (f *Fiber) StartSync(ctx context.Context, head tube.Tube, p *types.Packet, cb CompletionCallback) error {
	if err := f.begin(ctx, head, p, cb, true); err != nil {
		return err
	}
	f.run()
	return nil
}

func (f *Fiber) begin(ctx context.Context, head tube.Tube, p *types.Packet, cb CompletionCallback, inline bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateCreated:
	case StateCancelled:
		return f.usageError("start", types.ErrFiberCancelled)
	default:
		return f.usageError("start", types.ErrFiberStarted)
	}
	if head == nil {
		return f.usageError("start", types.ErrNilTube)
	}

	runCtx := WithContainer(withFiber(ctx, f), f.engine.container)
	f.ctx, f.cancel = context.WithCancel(runCtx)
	f.stopWait = context.AfterFunc(ctx, func() { f.Cancel(true) })

	f.state = StateRunning
	f.inline = inline
	f.cursor = head
	f.packet = p
	f.callback = cb
	f.started = f.engine.clock.Now()

	f.engine.logger.Debug("fiber started",
		slog.String("fiber", f.id),
		slog.String("head", tube.Name(head)),
		slog.Bool("sync", inline))
	return nil
}

// Resume continues a suspended fiber with p.
// A fiber suspended with SuspendNext hands p to its next stage; otherwise p travels the
// response path. A nil p keeps the packet the fiber suspended with.
func (f *Fiber) Resume(p *types.Packet) error {
	return f.resume("resume", resumption{packet: p})
}

// ResumeWithError continues a suspended fiber on the exception path with err
func (f *Fiber) ResumeWithError(err error) error {
	if err == nil {
		err = types.ErrNilError
	}
	return f.resume("resume with error", resumption{err: err})
}

// ResumeAndReturn continues a suspended fiber with p. With throughResponse false the
// fiber behaves as if the suspending stage had returned ReturnWith(p), skipping any next
// stage recorded by SuspendNext. With throughResponse true it is the same as Resume.
func (f *Fiber) ResumeAndReturn(p *types.Packet, throughResponse bool) error {
	return f.resume("resume and return", resumption{packet: p, ret: !throughResponse})
}

func (f *Fiber) resume(op string, r resumption) error {
	f.mu.Lock()
	if f.state != StateSuspended || f.queued != nil {
		sentinel := types.ErrFiberNotSuspended
		if f.state == StateCancelled {
			sentinel = types.ErrFiberCancelled
		}
		err := f.usageError(op, sentinel)
		f.mu.Unlock()
		return err
	}
	if f.parking {
		// the suspending goroutine picks this up once its handoff returns
		f.queued = &r
		f.mu.Unlock()
		return nil
	}
	f.applyResume(r)
	f.state = StateRunning
	inline := f.inline
	f.mu.Unlock()

	f.notifyResumed()
	if inline {
		f.run()
	} else {
		f.engine.dispatch("fiber-"+f.id, f.run)
	}
	return nil
}

// applyResume positions the fiber for r; caller holds mu
func (f *Fiber) applyResume(r resumption) {
	if r.err != nil {
		f.err = r.err
		f.cursor = nil
		return
	}
	if r.packet != nil {
		f.packet = r.packet
	}
	f.err = nil
	if r.ret {
		f.cursor = nil
	}
}

// Cancel stops the fiber. A suspended fiber is cancelled at once and never resumes.
// A running fiber stops before its next stage; with mayInterrupt its context is also
// cancelled so blocked stages can return early. A cancelled fiber never calls its callback.
// Cancel returns false if the fiber was already done or cancelled, or if a cancel of
// the same strength was already requested. Cancel(true) after Cancel(false) still interrupts.
func (f *Fiber) Cancel(mayInterrupt bool) bool {
	f.mu.Lock()
	switch f.state {
	case StateDone, StateCancelled:
		f.mu.Unlock()
		return false
	case StateRunning:
		escalate := mayInterrupt && !f.interrupt
		if f.cancelReq && !escalate {
			f.mu.Unlock()
			return false
		}
		f.cancelReq = true
		if escalate {
			f.interrupt = true
		}
		cancel := f.cancel
		f.mu.Unlock()
		if escalate && cancel != nil {
			cancel()
		}
		f.engine.logger.Debug("fiber cancel requested",
			slog.String("fiber", f.id),
			slog.Bool("interrupt", mayInterrupt))
		return true
	default:
		// created or suspended: nobody is driving the fiber
		f.state = StateCancelled
		f.queued = nil
		f.callback = nil
		f.mu.Unlock()
		f.release()
		f.engine.logger.Debug("fiber cancelled", slog.String("fiber", f.id))
		return true
	}
}

// run drives the fiber until it completes or parks with no resume pending
func (f *Fiber) run() {
	for {
		f.mu.Lock()
		ics := f.interceptors
		version := f.icVersion
		ctx := f.ctx
		f.mu.Unlock()

		var out outcome
		var park parking
		ran := false

		f.intercept(ctx, ics, func(ctx context.Context) {
			if ran {
				f.engine.logger.Warn("fiber interceptor called work twice", slog.String("fiber", f.id))
				return
			}
			ran = true
			out, park = f.drive(ctx, version)
		}, &ran)

		if !ran {
			f.complete(nil, types.ErrInterceptorSkipped)
			return
		}

		switch out {
		case outcomeReenter:
			continue
		case outcomeSuspended:
			if !f.park(park) {
				return
			}
		default:
			return
		}
	}
}

// intercept runs work inside ics, outermost first
func (f *Fiber) intercept(ctx context.Context, ics []ContextInterceptor, work Work, ran *bool) {
	defer func() {
		if r := recover(); r != nil {
			f.engine.logger.Error("fiber interceptor panicked",
				slog.String("fiber", f.id),
				slog.Any("panic", r),
				slog.Bool("work_ran", *ran))
		}
	}()

	var call func(i int, ctx context.Context)
	call = func(i int, ctx context.Context) {
		if i == len(ics) {
			work(ctx)
			return
		}
		ics[i].Intercept(ctx, f, func(ctx context.Context) {
			call(i+1, ctx)
		})
	}
	call(0, ctx)
}

// drive executes stages until the fiber completes, suspends or its interceptors change
func (f *Fiber) drive(ctx context.Context, version int) (outcome, parking) {
	for {
		f.mu.Lock()
		if f.cancelled() {
			f.mu.Unlock()
			f.finishCancelled()
			return outcomeDone, parking{}
		}
		if f.icVersion != version {
			f.mu.Unlock()
			return outcomeReenter, parking{}
		}

		var t tube.Tube
		var phase types.Phase
		p, err := f.packet, f.err
		switch {
		case err != nil:
			if len(f.stack) == 0 {
				f.mu.Unlock()
				f.complete(nil, err)
				return outcomeDone, parking{}
			}
			t, phase = f.pop(), types.PhaseException
		case f.cursor != nil:
			t, phase = f.cursor, types.PhaseRequest
		default:
			if len(f.stack) == 0 {
				f.mu.Unlock()
				f.complete(p, nil)
				return outcomeDone, parking{}
			}
			t, phase = f.pop(), types.PhaseResponse
		}
		f.mu.Unlock()

		na := f.invoke(ctx, t, phase, p, err)

		f.mu.Lock()
		if f.cancelled() {
			f.mu.Unlock()
			f.finishCancelled()
			return outcomeDone, parking{}
		}
		if f.apply(t, phase, na) {
			f.state = StateSuspended
			f.parking = true
			f.mu.Unlock()
			return outcomeSuspended, parking{
				stage:     tube.Name(t),
				onSuspend: na.OnSuspend(),
				onPool:    na.OnPool(),
			}
		}
		f.mu.Unlock()
	}
}

// cancelled reports whether a cancel was requested or the start context is done; caller holds mu.
// The run context is checked too because stages can observe it before the watcher on the
// start context has called Cancel.
func (f *Fiber) cancelled() bool {
	if !f.cancelReq && f.ctx != nil && f.ctx.Err() != nil {
		f.cancelReq = true
	}
	return f.cancelReq
}

// pop removes the most recently visited stage; caller holds mu
func (f *Fiber) pop() tube.Tube {
	last := len(f.stack) - 1
	t := f.stack[last]
	f.stack[last] = nil
	f.stack = f.stack[:last]
	return t
}

// invoke calls the handler for phase, converting a panic into a thrown StageError
func (f *Fiber) invoke(ctx context.Context, t tube.Tube, phase types.Phase, p *types.Packet, err error) (na tube.NextAction) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			stageErr := &types.StageError{
				Stage:    tube.Name(t),
				Phase:    phase,
				Cause:    types.PanicError(r),
				Panicked: true,
				Stack:    string(buf[:n]),
			}
			f.engine.logger.Warn("stage panicked",
				slog.String("fiber", f.id),
				slog.String("stage", stageErr.Stage),
				slog.String("phase", string(phase)),
				slog.Any("panic", r))
			na = tube.Throw(stageErr)
		}
	}()

	switch phase {
	case types.PhaseRequest:
		return t.ProcessRequest(ctx, p)
	case types.PhaseResponse:
		return t.ProcessResponse(ctx, p)
	default:
		return t.ProcessException(ctx, err)
	}
}

// apply updates the cursor and stack for na returned by t; caller holds mu.
// It reports whether the fiber must suspend.
func (f *Fiber) apply(t tube.Tube, phase types.Phase, na tube.NextAction) bool {
	if p := na.Packet(); p != nil {
		f.packet = p
	}

	switch na.Kind() {
	case tube.KindInvoke:
		f.stack = append(f.stack, t)
		f.cursor = na.Next()
		f.err = nil
	case tube.KindInvokeAndForget:
		f.cursor = na.Next()
		f.err = nil
	case tube.KindReturn:
		f.cursor = nil
		f.err = nil
	case tube.KindThrow:
		f.cursor = nil
		f.err = thrown(na.Err())
	case tube.KindAbortResponse:
		f.stack = f.stack[:0]
		f.cursor = nil
		f.err = nil
	case tube.KindThrowAbortResponse:
		f.stack = f.stack[:0]
		f.cursor = nil
		f.err = thrown(na.Err())
	case tube.KindSuspend:
		if phase == types.PhaseRequest {
			f.stack = append(f.stack, t)
		}
		f.cursor = na.Next()
		f.err = nil
		return true
	default:
		f.cursor = nil
		f.err = types.NewStageError(tube.Name(t), phase,
			fmt.Errorf("%w: kind %d", types.ErrInvalidNextAction, int(na.Kind())))
	}
	return false
}

func thrown(err error) error {
	if err == nil {
		return types.ErrNilError
	}
	return err
}

// park runs the handoff of a suspended fiber. It reports whether a resume arrived in the
// meantime, in which case the caller keeps driving.
func (f *Fiber) park(info parking) bool {
	f.engine.logger.Debug("fiber suspended",
		slog.String("fiber", f.id),
		slog.String("stage", info.stage))
	f.notifySuspended()

	if info.onSuspend != nil {
		if info.onPool {
			f.engine.dispatch("handoff-"+f.id, func() {
				f.handoff(info)
			})
		} else {
			f.handoff(info)
		}
	}

	f.mu.Lock()
	f.parking = false
	if f.state != StateSuspended || f.queued == nil {
		f.mu.Unlock()
		return false
	}
	r := *f.queued
	f.queued = nil
	f.applyResume(r)
	f.state = StateRunning
	f.mu.Unlock()

	f.notifyResumed()
	return true
}

// handoff runs the suspend routine. A failing routine resumes the fiber with its error.
func (f *Fiber) handoff(info parking) {
	err := f.runHandoff(info)
	if err == nil {
		return
	}
	if rerr := f.ResumeWithError(err); rerr != nil {
		f.engine.logger.Warn("handoff failed after fiber left suspension",
			slog.String("fiber", f.id),
			slog.String("error", err.Error()))
	}
}

func (f *Fiber) runHandoff(info parking) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			err = &types.StageError{
				Stage:    info.stage,
				Phase:    types.PhaseHandoff,
				Cause:    types.PanicError(r),
				Panicked: true,
				Stack:    string(buf[:n]),
			}
		}
	}()

	f.mu.Lock()
	ctx := f.ctx
	f.mu.Unlock()

	if err := info.onSuspend(ctx); err != nil {
		return types.NewStageError(info.stage, types.PhaseHandoff, err)
	}
	return nil
}

// complete delivers the outcome unless a cancel arrived first
func (f *Fiber) complete(p *types.Packet, err error) {
	f.mu.Lock()
	if f.cancelled() {
		f.mu.Unlock()
		f.finishCancelled()
		return
	}
	f.state = StateDone
	f.err = err
	cb := f.callback
	f.callback = nil
	f.cursor = nil
	f.stack = nil
	elapsed := f.engine.clock.Since(f.started)
	f.mu.Unlock()

	f.release()
	f.engine.logger.Debug("fiber completed",
		slog.String("fiber", f.id),
		slog.Bool("failed", err != nil),
		slog.Duration("elapsed", elapsed))

	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.engine.logger.Error("completion callback panicked",
				slog.String("fiber", f.id),
				slog.Any("panic", r))
		}
	}()
	if err != nil {
		cb.OnFailure(err)
	} else {
		cb.OnSuccess(p)
	}
}

func (f *Fiber) finishCancelled() {
	f.mu.Lock()
	f.state = StateCancelled
	f.callback = nil
	f.cursor = nil
	f.stack = nil
	f.mu.Unlock()

	f.release()
	f.engine.logger.Debug("fiber cancelled", slog.String("fiber", f.id))
}

// release frees the run context and drops the fiber from the engine
func (f *Fiber) release() {
	f.mu.Lock()
	cancel, stopWait := f.cancel, f.stopWait
	f.mu.Unlock()

	if stopWait != nil {
		stopWait()
	}
	if cancel != nil {
		cancel()
	}
	f.engine.unregister(f)
}

func (f *Fiber) notifySuspended() {
	for _, l := range f.Listeners() {
		f.notify(func() { l.OnSuspended(f) })
	}
}

func (f *Fiber) notifyResumed() {
	for _, l := range f.Listeners() {
		f.notify(func() { l.OnResumed(f) })
	}
}

func (f *Fiber) notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.engine.logger.Warn("fiber listener panicked",
				slog.String("fiber", f.id),
				slog.Any("panic", r))
		}
	}()
	fn()
}

// usageError reports misuse of the fiber API; caller holds mu
func (f *Fiber) usageError(op string, err error) error {
	return &types.UsageError{
		Op:    op,
		Fiber: f.id,
		State: f.state.String(),
		Err:   err,
	}
}
