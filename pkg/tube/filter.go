package tube

import (
	"context"

	"github.com/jzx17/gotube/pkg/types"
)

// Filter is embedded by stages that forward to a downstream neighbour.
// Its handlers pass the request on, the response back and exceptions back unchanged;
// embedding types override the ones they care about and provide Copy.
type Filter struct {
	Next Tube
}

// NewFilter creates a filter forwarding to next
func NewFilter(next Tube) Filter {
	return Filter{Next: next}
}

// ProcessRequest forwards the packet to Next
func (f *Filter) ProcessRequest(ctx context.Context, p *types.Packet) NextAction {
	return Invoke(f.Next, p)
}

// ProcessResponse returns the packet to the previous stage
func (f *Filter) ProcessResponse(ctx context.Context, p *types.Packet) NextAction {
	return ReturnWith(p)
}

// ProcessException rethrows err to the previous stage
func (f *Filter) ProcessException(ctx context.Context, err error) NextAction {
	return Throw(err)
}

// NextTube returns the downstream neighbour
func (f *Filter) NextTube() Tube {
	return f.Next
}

// CopyNext returns a filter pointing at the clone of Next.
// Call it after registering the enclosing copy with c.
func (f *Filter) CopyNext(c *Cloner) Filter {
	return Filter{Next: c.Copy(f.Next)}
}

// HandlerFunc produces the response for a request at the end of a pipeline
type HandlerFunc func(ctx context.Context, p *types.Packet) (*types.Packet, error)

// Terminal is a stateless end stage built from a function
type Terminal struct {
	name string
	fn   HandlerFunc
}

// NewTerminal creates a terminal stage. A nil fn echoes the request back.
func NewTerminal(name string, fn HandlerFunc) *Terminal {
	return &Terminal{name: name, fn: fn}
}

// Name returns the stage name
func (t *Terminal) Name() string {
	return t.name
}

// ProcessRequest runs the handler and turns around
func (t *Terminal) ProcessRequest(ctx context.Context, p *types.Packet) NextAction {
	if t.fn == nil {
		return ReturnWith(p)
	}
	out, err := t.fn(ctx, p)
	if err != nil {
		return Throw(err)
	}
	if out == nil {
		out = p
	}
	return ReturnWith(out)
}

// ProcessResponse returns p unchanged
func (t *Terminal) ProcessResponse(ctx context.Context, p *types.Packet) NextAction {
	return ReturnWith(p)
}

// ProcessException rethrows err
func (t *Terminal) ProcessException(ctx context.Context, err error) NextAction {
	return Throw(err)
}

// Copy returns t itself; a terminal has no per-call state
func (t *Terminal) Copy(c *Cloner) Tube {
	c.Add(t, t)
	return t
}

// FaultFunc converts an error into a response packet.
// It reports false when the error should keep propagating.
type FaultFunc func(ctx context.Context, err error) (*types.Packet, bool)

// Fault is a filter that turns errors coming back from downstream into responses
type Fault struct {
	Filter
	name string
	fn   FaultFunc
}

// NewFault creates a fault-synthesizing stage in front of next
func NewFault(name string, next Tube, fn FaultFunc) *Fault {
	return &Fault{Filter: NewFilter(next), name: name, fn: fn}
}

// Name returns the stage name
func (f *Fault) Name() string {
	return f.name
}

// ProcessException returns a synthesized response when fn accepts err
func (f *Fault) ProcessException(ctx context.Context, err error) NextAction {
	if f.fn != nil {
		if p, ok := f.fn(ctx, err); ok {
			return ReturnWith(p)
		}
	}
	return Throw(err)
}

// Copy clones the stage and everything downstream of it
func (f *Fault) Copy(c *Cloner) Tube {
	cp := &Fault{name: f.name, fn: f.fn}
	c.Add(f, cp)
	cp.Filter = f.CopyNext(c)
	return cp
}
