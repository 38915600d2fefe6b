package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vinayprograms/browserkit/autoerr"
)

// fixedRand always returns the same value, removing jitter variance.
type fixedRand struct {
	v float64
}

func (r fixedRand) Float64() float64 { return r.v }

// fakeClock records requested waits and fires immediately.
type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestDelayExponential(t *testing.T) {
	p := Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Strategy:    Exponential,
		Multiplier:  2.0,
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := Delay(i+1, p, fixedRand{}); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDelayFibonacci(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Strategy:    Fibonacci,
	}

	want := []time.Duration{time.Second, time.Second, 2 * time.Second, 3 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := Delay(i+1, p, fixedRand{}); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: time.Minute, Strategy: Linear}

	if got := Delay(3, p, fixedRand{}); got != 1500*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 1.5s", got)
	}
}

func TestDelayRandomRange(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute, Strategy: Random}

	// rng = 0 should give the lower bound, rng close to 1 near 3×base.
	if got := Delay(1, p, fixedRand{v: 0}); got != time.Second {
		t.Errorf("Delay at rng=0 = %v, want 1s", got)
	}
	got := Delay(1, p, fixedRand{v: 0.999})
	if got < 2900*time.Millisecond || got >= 3*time.Second {
		t.Errorf("Delay at rng≈1 = %v, want just under 3s", got)
	}
}

func TestDelayNilRand(t *testing.T) {
	random := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute, Strategy: Random}
	got := Delay(1, random, nil)
	if got < time.Second || got >= 3*time.Second {
		t.Errorf("Delay with nil rng = %v, want within [1s, 3s)", got)
	}

	jittered := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Strategy:    Exponential,
		Multiplier:  2.0,
		Jitter:      true,
	}
	got = Delay(2, jittered, nil)
	if got < 1600*time.Millisecond || got >= 2400*time.Millisecond {
		t.Errorf("jittered Delay with nil rng = %v, want within [1.6s, 2.4s)", got)
	}
}

func TestDelayJitterAndClamp(t *testing.T) {
	p := Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		Strategy:    Exponential,
		Multiplier:  2.0,
		Jitter:      true,
	}

	// rng=0.5 makes the jitter factor exactly 1.0.
	if got := Delay(2, p, fixedRand{v: 0.5}); got != 2*time.Second {
		t.Errorf("Delay with neutral jitter = %v, want 2s", got)
	}

	// Attempt 4 would be 8s; MaxDelay caps it.
	if got := Delay(4, p, fixedRand{v: 0.5}); got != 3*time.Second {
		t.Errorf("Delay past cap = %v, want 3s", got)
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: time.Second, Strategy: Linear}
	clock := &fakeClock{}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return autoerr.New(autoerr.CodeNetwork, "connection reset")
		}
		return nil
	}, WithClock(clock), WithRand(fixedRand{}))

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected 4 attempts, got %d", calls)
	}
	if len(clock.waits) != 3 {
		t.Errorf("Expected exactly 3 sleeps, got %d", len(clock.waits))
	}
}

func TestDoExhaustionReturnsLastErrorVerbatim(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second, Strategy: Linear}
	clock := &fakeClock{}

	final := autoerr.New(autoerr.CodeRateLimit, "429 on attempt three")
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return final
		}
		return autoerr.Newf(autoerr.CodeRateLimit, "429 on attempt %d", calls)
	}, WithClock(clock))

	if err != final {
		t.Errorf("Expected the last error unchanged, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Second, Strategy: Linear}
	clock := &fakeClock{}

	fatal := autoerr.New(autoerr.CodeAuth, "credentials rejected")
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return fatal
	}, WithClock(clock))

	if err != fatal {
		t.Errorf("Expected the fatal error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Non-retryable failures must not be retried, got %d attempts", calls)
	}
	if len(clock.waits) != 0 {
		t.Errorf("Expected no sleeps, got %d", len(clock.waits))
	}
}

func TestDoCustomPredicate(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second, Strategy: Linear}
	clock := &fakeClock{}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("flaky thing %d", calls)
	}, WithClock(clock), WithRetryIf(func(err error) bool { return true }))

	if err == nil {
		t.Fatal("Expected failure after exhaustion")
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestDoContextCanceled(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Strategy: Linear}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, p, func(ctx context.Context) error {
		return autoerr.New(autoerr.CodeNetwork, "unreachable")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDoInvalidPolicy(t *testing.T) {
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
}

func TestDoOnRetryCallback(t *testing.T) {
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second, Strategy: Linear}
	clock := &fakeClock{}

	var attempts []int
	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return autoerr.New(autoerr.CodeNetwork, "flaky")
	}, WithClock(clock), WithOnRetry(func(attempt int, delay time.Duration, err error) {
		attempts = append(attempts, attempt)
	}))

	if len(attempts) != 1 || attempts[0] != 1 {
		t.Errorf("Expected one retry callback for attempt 1, got %v", attempts)
	}
}
