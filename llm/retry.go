package llm

import (
	"context"
	"strings"
	"time"

	"github.com/vinayprograms/browserkit/retry"
)

// callPolicy bounds transient-failure retries across all adapters.
var callPolicy = retry.Policy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    time.Minute,
	Strategy:    retry.Exponential,
	Multiplier:  2,
	Jitter:      true,
}

// withRetry runs call under the shared policy. Billing problems are
// never retried; everything the keyword match considers transient is.
func withRetry(ctx context.Context, call func(context.Context) error) error {
	return retry.Do(ctx, callPolicy, call,
		retry.WithRetryIf(func(err error) bool {
			return isRetryableError(err) && !isBillingError(err)
		}))
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"500", "502", "503", "504",
		"overloaded", "timeout", "deadline exceeded",
		"connection reset", "connection refused", "temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isBillingError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"billing", "quota exceeded", "insufficient credit",
		"payment required", "402",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
