package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Memory implements Cache using in-memory storage. Useful for testing
// and single-process scenarios.
type Memory struct {
	mu     sync.Mutex
	data   map[string]*Entry
	ttl    time.Duration
	now    func() time.Time
	closed atomic.Bool
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMemoryTTL sets the entry lifetime. Defaults to DefaultTTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithMemoryClock injects the time source, for deterministic expiry in tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates a new in-memory result cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data: make(map[string]*Entry),
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached entry or a miss. The read that discovers an
// expired entry deletes it.
func (m *Memory) Get(description string, config map[string]interface{}) (*Entry, bool) {
	if m.closed.Load() {
		return nil, false
	}

	fp := Fingerprint(description, config)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[fp]
	if !ok {
		return nil, false
	}
	if e.expired(m.now(), m.ttl) {
		delete(m.data, fp)
		return nil, false
	}
	return e.Clone(), true
}

// Set stores the result under the pair's fingerprint, last write wins.
func (m *Memory) Set(description string, config map[string]interface{}, result map[string]interface{}) error {
	if m.closed.Load() {
		return ErrClosed
	}

	fp := Fingerprint(description, config)
	entry := &Entry{
		Fingerprint: fp,
		CachedAt:    m.now(),
		TTL:         m.ttl,
		Description: description,
		Config:      config,
		Result:      result,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[fp] = entry.Clone()
	return nil
}

// Sweep removes all expired entries and reports the count.
func (m *Memory) Sweep() int {
	if m.closed.Load() {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for fp, e := range m.data {
		if e.expired(now, m.ttl) {
			delete(m.data, fp)
			removed++
		}
	}
	return removed
}

// Clear removes every entry.
func (m *Memory) Clear() error {
	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*Entry)
	return nil
}

// Close marks the cache closed. Subsequent reads miss and writes fail.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

// Len reports the number of live entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
