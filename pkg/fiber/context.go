package fiber

import (
	"context"

	"github.com/jzx17/gotube/pkg/types"
)

type fiberKey struct{}

type containerKey struct{}

// FromContext returns the fiber driving the current stage, or nil outside a fiber
func FromContext(ctx context.Context) *Fiber {
	f, _ := ctx.Value(fiberKey{}).(*Fiber)
	return f
}

// WithContainer returns a context resolving c through ContainerFromContext
func WithContainer(ctx context.Context, c types.Container) context.Context {
	return context.WithValue(ctx, containerKey{}, c)
}

// ContainerFromContext returns the container of the engine running the current stage
func ContainerFromContext(ctx context.Context) types.Container {
	c, _ := ctx.Value(containerKey{}).(types.Container)
	return c
}

func withFiber(ctx context.Context, f *Fiber) context.Context {
	return context.WithValue(ctx, fiberKey{}, f)
}
