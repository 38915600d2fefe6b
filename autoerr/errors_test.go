package autoerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	err := New(CodeTaskNotFound, "task t-1 not found")

	if err.Code() != CodeTaskNotFound {
		t.Errorf("Expected code TASK_NOT_FOUND, got %s", err.Code())
	}
	if err.Category() != CategoryPermanent {
		t.Errorf("Expected permanent category, got %s", err.Category())
	}
	if err.Retryable() {
		t.Error("Not-found errors must not be retryable")
	}
	if err.Timestamp().IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestRetryableOverride(t *testing.T) {
	err := New(CodeNetwork, "connection reset", WithRetryable(false))
	if err.Retryable() {
		t.Error("Explicit override should win over category default")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := New(CodeRateLimit, "429 from upstream", WithTaskID("t-7"))
	outer := Wrap(inner, "agent run")

	if outer.Code() != CodeRateLimit {
		t.Errorf("Expected wrapped code RATE_LIMIT, got %s", outer.Code())
	}
	if outer.TaskID() != "t-7" {
		t.Errorf("Expected task id t-7, got %q", outer.TaskID())
	}
	if !errors.Is(outer, inner) {
		t.Error("Wrapped error should match inner via errors.Is")
	}
	if !Retryable(outer) {
		t.Error("Rate limit errors should stay retryable through wrapping")
	}
}

func TestWrapContextErrors(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, "agent run")
	if err.Code() != CodeExecutionTimeout {
		t.Errorf("Expected EXECUTION_TIMEOUT for deadline, got %s", err.Code())
	}

	err = Wrap(context.Canceled, "agent run")
	if err.Code() != CodeCanceled {
		t.Errorf("Expected CANCELED, got %s", err.Code())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) must return nil")
	}
	if Classify(nil, "context") != nil {
		t.Error("Classify(nil) must return nil")
	}
}

func TestCodeForMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want Code
	}{
		{"DNS lookup failed for example.com", CodeNetwork},
		{"stale element reference", CodeBrowser},
		{"login rejected: bad credentials", CodeAuth},
		{"reCAPTCHA challenge presented", CodeCaptcha},
		{"HTTP 429 Too Many Requests", CodeRateLimit},
		{"502 Bad Gateway", CodeServer},
		{"something novel went wrong", CodeExecutionFailed},
	}

	for _, tc := range cases {
		if got := CodeForMessage(tc.msg); got != tc.want {
			t.Errorf("CodeForMessage(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestClassifyRawError(t *testing.T) {
	raw := fmt.Errorf("connection refused by 10.0.0.1")
	err := Classify(raw, "navigate")

	if err.Code() != CodeNetwork {
		t.Errorf("Expected NETWORK, got %s", err.Code())
	}
	if !err.Retryable() {
		t.Error("Network faults should be retryable")
	}
	if !errors.Is(err, raw) {
		t.Error("Classify should preserve the cause chain")
	}
}

func TestRetryableRawError(t *testing.T) {
	if !Retryable(fmt.Errorf("gateway timeout while loading page")) {
		t.Error("Timeout-looking raw errors should be retryable")
	}
	if Retryable(fmt.Errorf("element not found: #submit")) {
		t.Error("Browser selector faults should not be retryable")
	}
	if Retryable(nil) {
		t.Error("nil is never retryable")
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(CodeDuplicateTask, "task %s already exists", "t-1")
	if !Is(err, CodeDuplicateTask) {
		t.Error("Is should match the code")
	}
	if Is(err, CodeTaskNotFound) {
		t.Error("Is should not match a different code")
	}
	if Is(errors.New("plain"), CodeInternal) {
		t.Error("Plain errors carry no code")
	}
}
