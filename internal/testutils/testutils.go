// Package testutils provides testing helpers shared by the runtime packages
package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/gotube/pkg/types"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every wait performed by the helpers
const DefaultTimeout = 5 * time.Second

// Callback records completion deliveries.
// It satisfies fiber.CompletionCallback.
type Callback struct {
	mu        sync.Mutex
	responses []*types.Packet
	errors    []error
	done      chan struct{}
	once      sync.Once
}

// NewCallback creates an empty recorder
func NewCallback() *Callback {
	return &Callback{done: make(chan struct{})}
}

// OnSuccess records a response
func (c *Callback) OnSuccess(p *types.Packet) {
	c.mu.Lock()
	c.responses = append(c.responses, p)
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// OnFailure records an error
func (c *Callback) OnFailure(err error) {
	c.mu.Lock()
	c.errors = append(c.errors, err)
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Response returns the first recorded response
func (c *Callback) Response() *types.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return nil
	}
	return c.responses[0]
}

// Err returns the first recorded error
func (c *Callback) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) == 0 {
		return nil
	}
	return c.errors[0]
}

// Calls returns the total number of deliveries
func (c *Callback) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses) + len(c.errors)
}

// Done is closed on the first delivery
func (c *Callback) Done() <-chan struct{} {
	return c.done
}

// Wait fails the test unless a delivery happens within DefaultTimeout
func (c *Callback) Wait(t testing.TB) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(DefaultTimeout):
		require.FailNow(t, "timed out waiting for completion")
	}
}

// Context returns a context cancelled at test cleanup
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// Signal is a one-shot latch used to hand control between a test and a stage
type Signal struct {
	ch   chan struct{}
	once sync.Once
}

// NewSignal creates an unfired signal
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire releases every waiter; later calls are no-ops
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// C returns the channel closed by Fire
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Wait fails the test unless the signal fires within DefaultTimeout
func (s *Signal) Wait(t testing.TB) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(DefaultTimeout):
		require.FailNow(t, "timed out waiting for signal")
	}
}

// Fired reports whether Fire has been called
func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
