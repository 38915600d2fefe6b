package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/vinayprograms/browserkit/autoerr"
)

// Common errors.
var (
	ErrInvalidPolicy = errors.New("invalid retry policy")
)

// Strategy selects how delays grow across attempts.
type Strategy string

const (
	// Linear grows delays as base × attempt.
	Linear Strategy = "linear"

	// Exponential grows delays as base × multiplier^(attempt−1).
	Exponential Strategy = "exponential"

	// Fibonacci grows delays as base × fib(attempt), fib(1)=fib(2)=1.
	Fibonacci Strategy = "fibonacci"

	// Random draws delays uniformly from [base, 3×base).
	Random Strategy = "random"
)

// Policy configures the backoff engine.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// BaseDelay seeds the delay computation.
	BaseDelay time.Duration

	// MaxDelay caps every computed delay.
	MaxDelay time.Duration

	// Strategy selects the growth curve. Defaults to Exponential.
	Strategy Strategy

	// Multiplier is the exponential growth factor. Defaults to 2.
	Multiplier float64

	// Jitter scales each delay by a uniform factor in [0.8, 1.2).
	Jitter bool
}

// DefaultPolicy matches the automation defaults: three attempts,
// exponential growth from one second, capped at a minute, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Strategy:    Exponential,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidPolicy
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Rand is the injectable random source. Float64 must return a value
// uniformly distributed in [0, 1).
type Rand interface {
	Float64() float64
}

// Clock is the injectable time source for suspending between attempts.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Delay computes the delay before the next attempt. attempt counts from 1
// up to MaxAttempts. The result is pure given rng; a nil rng falls back
// to a time-seeded source.
func Delay(attempt int, p Policy, rng Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if rng == nil && (p.Strategy == Random || p.Jitter) {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	base := p.BaseDelay.Seconds()
	var delay float64

	switch p.Strategy {
	case Linear:
		delay = base * float64(attempt)
	case Exponential:
		mult := p.Multiplier
		if mult <= 0 {
			mult = 2.0
		}
		delay = base * math.Pow(mult, float64(attempt-1))
	case Fibonacci:
		delay = base * float64(fib(attempt))
	case Random:
		delay = base + rng.Float64()*(2*base)
	default:
		delay = base
	}

	if p.Jitter {
		delay *= 0.8 + rng.Float64()*0.4
	}

	d := time.Duration(delay * float64(time.Second))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// fib returns the nth Fibonacci number with fib(1) = fib(2) = 1.
func fib(n int) int64 {
	if n <= 2 {
		return 1
	}
	var a, b int64 = 1, 1
	for i := 3; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// Option configures a Do call.
type Option func(*runner)

// WithClock injects the clock used to wait between attempts.
func WithClock(c Clock) Option {
	return func(r *runner) {
		r.clock = c
	}
}

// WithRand injects the random source used for jitter and Random delays.
func WithRand(rng Rand) Option {
	return func(r *runner) {
		r.rng = rng
	}
}

// WithRetryIf overrides the retryable-failure predicate. The default
// consults autoerr categories.
func WithRetryIf(pred func(error) bool) Option {
	return func(r *runner) {
		r.retryable = pred
	}
}

// WithOnRetry registers a callback invoked before each wait, typically
// for logging.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(r *runner) {
		r.onRetry = fn
	}
}

type runner struct {
	clock     Clock
	rng       Rand
	retryable func(error) bool
	onRetry   func(int, time.Duration, error)
}

// Do runs op up to p.MaxAttempts times, suspending between attempts for
// Delay(attempt, p). Only the calling goroutine waits; the wait honors
// ctx cancellation. Two attempts of one Do call never overlap. On
// exhaustion, or on the first non-retryable failure, the last error is
// returned unchanged.
func Do(ctx context.Context, p Policy, op func(context.Context) error, opts ...Option) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r := &runner{
		clock:     realClock{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		retryable: autoerr.Retryable,
	}
	for _, opt := range opts {
		opt(r)
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts || !r.retryable(lastErr) {
			return lastErr
		}

		delay := Delay(attempt, p, r.rng)
		if r.onRetry != nil {
			r.onRetry(attempt, delay, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
		}
	}

	return lastErr
}
