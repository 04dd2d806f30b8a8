package fiber

import (
	"context"

	"github.com/jzx17/gotube/pkg/types"
)

// CompletionCallback receives the outcome of a fiber run.
// Exactly one method is called once per run, or none when the fiber is cancelled.
type CompletionCallback interface {
	OnSuccess(p *types.Packet)
	OnFailure(err error)
}

// CallbackFuncs adapts a pair of functions to CompletionCallback; nil fields are skipped
type CallbackFuncs struct {
	Success func(p *types.Packet)
	Failure func(err error)
}

// OnSuccess calls Success
func (c CallbackFuncs) OnSuccess(p *types.Packet) {
	if c.Success != nil {
		c.Success(p)
	}
}

// OnFailure calls Failure
func (c CallbackFuncs) OnFailure(err error) {
	if c.Failure != nil {
		c.Failure(err)
	}
}

// Result is the outcome delivered by a ChanCallback
type Result struct {
	Packet *types.Packet
	Err    error
}

// ChanCallback delivers the outcome of a run on a channel
type ChanCallback struct {
	ch chan Result
}

// NewChanCallback creates a callback with a buffered result channel
func NewChanCallback() *ChanCallback {
	return &ChanCallback{ch: make(chan Result, 1)}
}

// OnSuccess delivers p
func (c *ChanCallback) OnSuccess(p *types.Packet) {
	c.send(Result{Packet: p})
}

// OnFailure delivers err
func (c *ChanCallback) OnFailure(err error) {
	c.send(Result{Err: err})
}

func (c *ChanCallback) send(r Result) {
	select {
	case c.ch <- r:
	default:
	}
}

// Results returns the channel the outcome is delivered on
func (c *ChanCallback) Results() <-chan Result {
	return c.ch
}

// Wait blocks until the outcome arrives or ctx is done
func (c *ChanCallback) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-c.ch:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
