// Package autoerr provides the structured error taxonomy for browserkit.
// It classifies automation failures into codes and categories so retry
// logic and the task lifecycle can decide how to handle a fault without
// string matching at every call site.
//
// # Error Categories
//
// Errors fall into four categories:
//
//   - Transient: temporary failures where retry may succeed (network, timeouts)
//   - Permanent: failures where retry will not help (unknown task, bad input)
//   - Resource: exhaustion issues (rate limits, captcha walls)
//   - Internal: unexpected errors indicating bugs or corrupted state
//
// # Usage
//
// Create a new error:
//
//	err := autoerr.New(autoerr.CodeTaskNotFound, "task abc not found")
//
// Wrap a raw executor fault, inferring a code from its message:
//
//	wrapped := autoerr.Classify(err, "agent run")
//
// Check retryability:
//
//	if autoerr.Retryable(err) {
//	    // schedule another attempt
//	}
package autoerr
