package fiber

import (
	"context"
)

// Listener observes suspend and resume transitions. It is for instrumentation only.
type Listener interface {
	OnSuspended(f *Fiber)
	OnResumed(f *Fiber)
}

// ListenerFuncs adapts functions to Listener. Register it by pointer so it can be removed.
type ListenerFuncs struct {
	Suspended func(f *Fiber)
	Resumed   func(f *Fiber)
}

// OnSuspended calls Suspended
func (l *ListenerFuncs) OnSuspended(f *Fiber) {
	if l.Suspended != nil {
		l.Suspended(f)
	}
}

// OnResumed calls Resumed
func (l *ListenerFuncs) OnResumed(f *Fiber) {
	if l.Resumed != nil {
		l.Resumed(f)
	}
}

// Work runs one segment of a fiber's stages with the given context
type Work func(ctx context.Context)

// ContextInterceptor wraps every run segment of a fiber.
// Implementations must call work exactly once; they may pass a derived context to it.
// Calls after the first are ignored.
type ContextInterceptor interface {
	Intercept(ctx context.Context, f *Fiber, work Work)
}

// InterceptorFunc adapts a function to ContextInterceptor
type InterceptorFunc func(ctx context.Context, f *Fiber, work Work)

// Intercept calls fn
func (fn InterceptorFunc) Intercept(ctx context.Context, f *Fiber, work Work) {
	fn(ctx, f, work)
}
