// Package cache provides a content-addressed store for automation
// results, keyed by a stable fingerprint over the task description and
// its canonicalized configuration. Two semantically identical
// (description, config) pairs always collide, regardless of config key
// insertion order.
//
// Two implementations are provided: Memory for tests and single-process
// use, and File for persistence across runs (one JSON document per
// fingerprint under a cache directory).
//
// Eviction is TTL-only: entries expire lazily on the read that discovers
// them, or proactively via Sweep. There is no size or LRU bound, which
// is a documented scale limitation.
package cache
