package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Common errors.
var (
	// ErrClosed indicates the cache has been closed.
	ErrClosed = errors.New("cache closed")
)

// DefaultTTL is the entry lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// Entry is an immutable cached automation result.
type Entry struct {
	// Fingerprint is the content address of the (description, config) pair.
	Fingerprint string `json:"fingerprint"`

	// CachedAt is when the result was stored.
	CachedAt time.Time `json:"cached_at"`

	// TTL is the lifetime the entry was written with.
	TTL time.Duration `json:"ttl"`

	// Description is the task description at capture time.
	Description string `json:"description"`

	// Config is the configuration snapshot at capture time.
	Config map[string]interface{} `json:"config"`

	// Result is the stored automation result.
	Result map[string]interface{} `json:"result"`
}

// Clone returns a deep-enough copy for handing to callers: top-level
// maps are copied so callers cannot mutate the stored entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := &Entry{
		Fingerprint: e.Fingerprint,
		CachedAt:    e.CachedAt,
		TTL:         e.TTL,
		Description: e.Description,
	}
	if e.Config != nil {
		clone.Config = make(map[string]interface{}, len(e.Config))
		for k, v := range e.Config {
			clone.Config[k] = v
		}
	}
	if e.Result != nil {
		clone.Result = make(map[string]interface{}, len(e.Result))
		for k, v := range e.Result {
			clone.Result[k] = v
		}
	}
	return clone
}

// expired reports whether the entry is past its lifetime at now,
// falling back to fallbackTTL when the entry carries none.
func (e *Entry) expired(now time.Time, fallbackTTL time.Duration) bool {
	ttl := e.TTL
	if ttl <= 0 {
		ttl = fallbackTTL
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CachedAt) > ttl
}

// Cache stores automation results keyed by fingerprint.
type Cache interface {
	// Get returns the cached entry for the canonicalized pair, or
	// (nil, false) on any miss: absent, unreadable, structurally
	// invalid, or expired. Expired entries are deleted by the read
	// that discovers them. Get never returns an error to the caller.
	Get(description string, config map[string]interface{}) (*Entry, bool)

	// Set stores the result with a capture timestamp. Concurrent
	// writers to one fingerprint are last-write-wins.
	Set(description string, config map[string]interface{}, result map[string]interface{}) error

	// Sweep removes all expired or invalid entries and reports how
	// many were removed.
	Sweep() int

	// Clear removes every entry unconditionally.
	Clear() error

	// Close releases resources held by the cache.
	Close() error
}

// Fingerprint computes the stable content address for a task
// description and configuration. The config is canonicalized by JSON
// encoding, which emits map keys sorted at every depth, so key
// insertion order never changes the result.
func Fingerprint(description string, config map[string]interface{}) string {
	canonical, err := json.Marshal(config)
	if err != nil {
		// Unencodable values fall back to the description alone;
		// callers passing JSON-shaped configs never hit this.
		canonical = nil
	}

	h := sha256.New()
	h.Write([]byte(description))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
