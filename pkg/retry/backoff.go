package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the backoff strategy interface
type BackoffStrategy interface {
	// NextDelay calculates the delay before attempt+1, attempt counting from 1
	NextDelay(attempt int) time.Duration
}

// FixedBackoff waits the same delay between every attempt
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy
func NewFixedBackoff(delay time.Duration, opts ...BackoffOption) *FixedBackoff {
	o := collect(opts)
	return &FixedBackoff{delay: delay, jitter: o.jitter}
}

// NextDelay calculates the delay for the next retry
func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	return applyJitter(b.jitter, b.delay)
}

// ExponentialBackoff multiplies the delay after every attempt up to a cap
type ExponentialBackoff struct {
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffOption) *ExponentialBackoff {
	o := collect(opts)
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     30 * time.Second,
		jitter:       o.jitter,
	}
	if o.multiplier != nil {
		b.multiplier = *o.multiplier
	}
	if o.maxDelay != nil {
		b.maxDelay = *o.maxDelay
	}
	return b
}

// NextDelay calculates the delay for the next retry
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	return applyJitter(b.jitter, time.Duration(delay))
}

// LinearBackoff grows the delay by a fixed increment up to a cap
type LinearBackoff struct {
	initialDelay time.Duration
	increment    time.Duration
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewLinearBackoff creates a linear backoff strategy
func NewLinearBackoff(initialDelay, increment time.Duration, opts ...BackoffOption) *LinearBackoff {
	o := collect(opts)
	b := &LinearBackoff{
		initialDelay: initialDelay,
		increment:    increment,
		maxDelay:     30 * time.Second,
		jitter:       o.jitter,
	}
	if o.maxDelay != nil {
		b.maxDelay = *o.maxDelay
	}
	return b
}

// NextDelay calculates the delay for the next retry
func (b *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	delay := b.initialDelay + time.Duration(attempt-1)*b.increment
	if delay > b.maxDelay {
		delay = b.maxDelay
	}

	return applyJitter(b.jitter, delay)
}

// NewBackoff builds a strategy by name: "fixed", "exponential" or "linear".
// Linear backoff grows by base on every attempt. A non-positive maxDelay keeps the default cap.
func NewBackoff(kind string, base, maxDelay time.Duration) (BackoffStrategy, error) {
	var opts []BackoffOption
	if maxDelay > 0 {
		opts = append(opts, WithBackoffMaxDelay(maxDelay))
	}

	switch kind {
	case "", "exponential":
		return NewExponentialBackoff(base, opts...), nil
	case "fixed":
		return NewFixedBackoff(base), nil
	case "linear":
		return NewLinearBackoff(base, base, opts...), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", kind)
	}
}

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// FullJitter full jitter function - random within [0, delay) range
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter equal jitter function - delay/2 + random(0, delay/2)
func EqualJitter(delay time.Duration) time.Duration {
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

func applyJitter(jitter JitterFunc, delay time.Duration) time.Duration {
	if jitter == nil {
		return delay
	}
	return jitter(delay)
}

// BackoffOption configures a backoff strategy
type BackoffOption func(*backoffOptions)

type backoffOptions struct {
	multiplier *float64
	maxDelay   *time.Duration
	jitter     JitterFunc
}

func collect(opts []BackoffOption) backoffOptions {
	var o backoffOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBackoffMultiplier sets backoff multiplier (exponential backoff only)
func WithBackoffMultiplier(multiplier float64) BackoffOption {
	return func(o *backoffOptions) { o.multiplier = &multiplier }
}

// WithBackoffMaxDelay sets maximum delay time
func WithBackoffMaxDelay(maxDelay time.Duration) BackoffOption {
	return func(o *backoffOptions) { o.maxDelay = &maxDelay }
}

// WithBackoffJitter sets jitter function
func WithBackoffJitter(jitter JitterFunc) BackoffOption {
	return func(o *backoffOptions) { o.jitter = jitter }
}
