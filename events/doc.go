// Package events distributes task step notifications.
//
// A Sink receives step events synchronously from the task runner. The
// Bus interface fans events out to external consumers over pub/sub
// backends (NATS, in-memory); BusSink bridges the two by publishing
// each step as JSON on a per-task subject.
package events
