// Package tasks manages the lifecycle of browser automation tasks.
//
// A Backend owns a set of tasks, runs them one at a time through an
// injected Executor, records lifecycle steps as they happen, and keeps
// aggregate metrics. Completed results can be served from a cache on
// repeat runs, and step events fan out synchronously to registered
// sinks.
package tasks
