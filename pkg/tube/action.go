package tube

import (
	"context"
	"fmt"

	"github.com/jzx17/gotube/pkg/types"
)

// Kind identifies the directive carried by a NextAction
type Kind int

const (
	// KindInvoke continues forward into the next stage and revisits the current one on return
	KindInvoke Kind = iota
	// KindInvokeAndForget continues forward without revisiting the current stage
	KindInvokeAndForget
	// KindReturn turns around onto the response path
	KindReturn
	// KindThrow turns around onto the exception path
	KindThrow
	// KindAbortResponse returns directly to the caller, skipping every visited stage
	KindAbortResponse
	// KindThrowAbortResponse fails directly to the caller, skipping every visited stage
	KindThrowAbortResponse
	// KindSuspend parks the fiber until it is resumed
	KindSuspend
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindInvoke:
		return "Invoke"
	case KindInvokeAndForget:
		return "InvokeAndForget"
	case KindReturn:
		return "Return"
	case KindThrow:
		return "Throw"
	case KindAbortResponse:
		return "AbortResponse"
	case KindThrowAbortResponse:
		return "ThrowAbortResponse"
	case KindSuspend:
		return "Suspend"
	default:
		return "Unknown"
	}
}

// SuspendFunc is the handoff routine run when a fiber suspends.
// It registers whatever will later resume the fiber, which it can resolve from ctx.
// It must not resume the fiber and then keep driving it on the same goroutine.
type SuspendFunc func(ctx context.Context) error

// NextAction is the directive a stage handler returns.
// The zero value is Invoke(nil, nil): the pipeline ends after the current stage.
type NextAction struct {
	kind      Kind
	next      Tube
	packet    *types.Packet
	err       error
	onSuspend SuspendFunc
	onPool    bool
}

// Invoke forwards p to next; the current stage sees the eventual response or exception.
// A nil packet keeps the packet currently in flight.
func Invoke(next Tube, p *types.Packet) NextAction {
	return NextAction{kind: KindInvoke, next: next, packet: p}
}

// InvokeAndForget forwards p to next; the current stage is left off the return path
func InvokeAndForget(next Tube, p *types.Packet) NextAction {
	return NextAction{kind: KindInvokeAndForget, next: next, packet: p}
}

// ReturnWith sends p back through the stages visited so far
func ReturnWith(p *types.Packet) NextAction {
	return NextAction{kind: KindReturn, packet: p}
}

// Throw sends err back through the stages visited so far
func Throw(err error) NextAction {
	return NextAction{kind: KindThrow, err: err}
}

// AbortResponse delivers p to the caller without any visited stage seeing it
func AbortResponse(p *types.Packet) NextAction {
	return NextAction{kind: KindAbortResponse, packet: p}
}

// ThrowAbortResponse delivers err to the caller without any visited stage seeing it
func ThrowAbortResponse(err error) NextAction {
	return NextAction{kind: KindThrowAbortResponse, err: err}
}

// Suspend parks the fiber. On resume the packet travels the response path starting with the
// suspending stage when it suspended from its request handler.
func Suspend(onSuspend SuspendFunc) NextAction {
	return NextAction{kind: KindSuspend, onSuspend: onSuspend}
}

// SuspendNext parks the fiber. On resume with a packet, next processes it as a request.
func SuspendNext(next Tube, onSuspend SuspendFunc) NextAction {
	return NextAction{kind: KindSuspend, next: next, onSuspend: onSuspend}
}

// HandoffOnPool returns a copy of a suspend directive whose handoff routine runs on the
// engine executor instead of the suspending goroutine. Other directives are returned unchanged.
func (na NextAction) HandoffOnPool() NextAction {
	if na.kind == KindSuspend {
		na.onPool = true
	}
	return na
}

// Kind returns the directive
func (na NextAction) Kind() Kind {
	return na.kind
}

// Next returns the stage to continue with, if any
func (na NextAction) Next() Tube {
	return na.next
}

// Packet returns the packet carried by the directive, if any
func (na NextAction) Packet() *types.Packet {
	return na.packet
}

// Err returns the error carried by the directive, if any
func (na NextAction) Err() error {
	return na.err
}

// OnSuspend returns the handoff routine of a suspend directive
func (na NextAction) OnSuspend() SuspendFunc {
	return na.onSuspend
}

// OnPool reports whether the handoff routine must run on the engine executor
func (na NextAction) OnPool() bool {
	return na.onPool
}

// String returns a readable form of the directive
func (na NextAction) String() string {
	switch na.kind {
	case KindInvoke, KindInvokeAndForget:
		return fmt.Sprintf("NextAction(%s, next=%s, packet=%s)", na.kind, Name(na.next), na.packet)
	case KindReturn, KindAbortResponse:
		return fmt.Sprintf("NextAction(%s, packet=%s)", na.kind, na.packet)
	case KindThrow, KindThrowAbortResponse:
		return fmt.Sprintf("NextAction(%s, err=%v)", na.kind, na.err)
	case KindSuspend:
		return fmt.Sprintf("NextAction(%s, next=%s, pool=%t)", na.kind, Name(na.next), na.onPool)
	default:
		return fmt.Sprintf("NextAction(%s)", na.kind)
	}
}
