/*
Package fiber runs packets through tube pipelines as suspendable continuations.

# Overview

An Engine creates Fibers. A Fiber drives one packet through a pipeline of
tube.Tube stages: each stage returns a tube.NextAction and the fiber moves
forward, turns around on the response or exception path, or suspends.
Visited stages are kept on an explicit stack, so a suspended fiber holds no
goroutine and can be resumed from any goroutine later.

# Starting

Start hands the run to the engine executor and returns immediately unless the
executor is an inline one. StartSync runs on the calling goroutine and
returns once the fiber is done or suspended. The outcome is delivered to the
CompletionCallback exactly once, or not at all if the fiber is cancelled.

	engine, err := fiber.NewEngine(&fiber.EngineConfig{
		Container: types.NewContainer("orders", nil),
		Executor:  pool,
	})
	if err != nil {
		return err
	}

	cb := fiber.NewChanCallback()
	if err := engine.CreateFiber().Start(ctx, head, types.NewPacket(order), cb); err != nil {
		return err
	}
	res, err := cb.Wait(ctx)

# Suspending

A stage returns tube.Suspend or tube.SuspendNext with a handoff routine that
arranges for the fiber to be resumed, for example by starting an asynchronous
call whose completion calls Resume. A resume that arrives while the handoff is
still running is queued, and the goroutine that suspended the fiber carries
on driving it once the handoff returns.

# Interceptors

ContextInterceptors wrap every run segment, outermost first. They receive the
run context and may pass a derived one to the stages, which is how tracing
spans and other request scoped values reach stage handlers. The fiber and
the engine container are always resolvable with FromContext and
ContainerFromContext.
*/
package fiber
