// Package retry implements the backoff policy engine for flaky
// automation operations. Delay computes per-attempt delays from a
// Policy; Do wraps an operation and re-runs it until it succeeds,
// the attempt budget is exhausted, or the context ends.
//
// The random source and clock are injected collaborators, so delay
// sequences and sleeps are reproducible under test:
//
//	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Second,
//		MaxDelay: time.Minute, Strategy: retry.Exponential, Multiplier: 2}
//	err := retry.Do(ctx, policy, fetchPage)
//
// On exhaustion Do returns the last failure unchanged, preserving the
// root cause for the caller.
package retry
