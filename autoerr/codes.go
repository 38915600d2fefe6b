package autoerr

import "strings"

// Category classifies errors by their nature and retry semantics.
type Category string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: network timeouts, flaky page loads, 5xx responses.
	CategoryTransient Category = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown task id, malformed config, missing credentials.
	CategoryPermanent Category = "permanent"

	// CategoryResource indicates exhaustion or blocking issues.
	// Examples: rate limiting, captcha challenges.
	CategoryResource Category = "resource"

	// CategoryInternal indicates unexpected errors or corrupted state.
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c Category) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// Code identifies specific failure types within categories.
type Code string

// Error codes for browser automation failures.
const (
	// Lifecycle errors
	CodeDuplicateTask    Code = "DUPLICATE_TASK"    // Task id already exists
	CodeTaskNotFound     Code = "TASK_NOT_FOUND"    // Unknown task id
	CodeTaskBusy         Code = "TASK_BUSY"         // Attribution slot already occupied
	CodeExecutionTimeout Code = "EXECUTION_TIMEOUT" // Executor exceeded wall-clock budget
	CodeExecutionFailed  Code = "EXECUTION_FAILED"  // Executor raised an ordinary fault
	CodeCanceled         Code = "CANCELED"          // Caller canceled the run

	// Executor fault kinds, inferred from raw error messages
	CodeNetwork   Code = "NETWORK"    // DNS, connection, SSL failures
	CodeBrowser   Code = "BROWSER"    // Stale/missing elements, webdriver faults
	CodeAuth      Code = "AUTH"       // Login, credential, 401/403 failures
	CodeCaptcha   Code = "CAPTCHA"    // Captcha or robot checks
	CodeRateLimit Code = "RATE_LIMIT" // 429, throttling
	CodeServer    Code = "SERVER"     // 5xx upstream failures

	// Cache errors
	CodeCacheCorrupt Code = "CACHE_CORRUPT" // Unreadable or invalid cache entry

	// Display stack errors
	CodeProcessStart Code = "PROCESS_START" // Hard-dependency stage failed to start
	CodeProbeFailed  Code = "PROBE_FAILED"  // Liveness probe could not run

	// Catch-all
	CodeInternal Code = "INTERNAL"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// DefaultCategory returns the default category for a code.
func (c Code) DefaultCategory() Category {
	switch c {
	case CodeExecutionTimeout, CodeNetwork, CodeServer, CodeProcessStart, CodeProbeFailed:
		return CategoryTransient
	case CodeDuplicateTask, CodeTaskNotFound, CodeTaskBusy, CodeExecutionFailed,
		CodeCanceled, CodeBrowser, CodeAuth:
		return CategoryPermanent
	case CodeRateLimit, CodeCaptcha:
		return CategoryResource
	case CodeCacheCorrupt, CodeInternal:
		return CategoryInternal
	default:
		return CategoryInternal
	}
}

// messageKeywords maps fault-message fragments to codes, checked in order.
// Keyed off what browser agents and upstream sites actually say when they
// fail, so raw executor errors can still drive retry decisions.
var messageKeywords = []struct {
	code     Code
	keywords []string
}{
	{CodeCaptcha, []string{"captcha", "recaptcha", "verification", "robot"}},
	{CodeRateLimit, []string{"rate limit", "too many requests", "429", "throttle"}},
	{CodeAuth, []string{"login", "password", "credentials", "unauthorized", "401", "403"}},
	{CodeServer, []string{"500", "502", "503", "504", "internal server error"}},
	{CodeNetwork, []string{"connection", "timeout", "dns", "ssl", "certificate"}},
	{CodeBrowser, []string{"element not found", "stale element", "no such element", "webdriver"}},
}

// CodeForMessage infers a failure code from a raw error message.
// Returns CodeExecutionFailed when nothing matches.
func CodeForMessage(msg string) Code {
	lower := strings.ToLower(msg)
	for _, entry := range messageKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.code
			}
		}
	}
	return CodeExecutionFailed
}
