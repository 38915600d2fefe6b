package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// File implements Cache with one JSON document per fingerprint under a
// cache directory, so results survive process restarts. Readers may run
// concurrently; writers to one fingerprint are last-write-wins at the
// filesystem level.
type File struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	closed atomic.Bool
}

// FileOption configures a File cache.
type FileOption func(*File)

// WithFileTTL sets the entry lifetime. Defaults to DefaultTTL.
func WithFileTTL(ttl time.Duration) FileOption {
	return func(f *File) {
		f.ttl = ttl
	}
}

// WithFileClock injects the time source, for deterministic expiry in tests.
func WithFileClock(now func() time.Time) FileOption {
	return func(f *File) {
		f.now = now
	}
}

// NewFile creates a file-backed result cache rooted at dir, creating
// the directory if needed.
func NewFile(dir string, opts ...FileOption) (*File, error) {
	f := &File{
		dir: dir,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) path(fingerprint string) string {
	return filepath.Join(f.dir, fingerprint+".json")
}

// Get returns the cached entry or a miss. Unreadable or structurally
// invalid files report a miss; an expired entry is unlinked by the read
// that discovers it.
func (f *File) Get(description string, config map[string]interface{}) (*Entry, bool) {
	if f.closed.Load() {
		return nil, false
	}

	fp := Fingerprint(description, config)
	path := f.path(fp)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.CachedAt.IsZero() {
		return nil, false
	}

	if entry.expired(f.now(), f.ttl) {
		_ = os.Remove(path)
		return nil, false
	}

	entry.Fingerprint = fp
	return &entry, true
}

// Set stores the result under the pair's fingerprint.
func (f *File) Set(description string, config map[string]interface{}, result map[string]interface{}) error {
	if f.closed.Load() {
		return ErrClosed
	}

	fp := Fingerprint(description, config)
	entry := Entry{
		Fingerprint: fp,
		CachedAt:    f.now(),
		TTL:         f.ttl,
		Description: description,
		Config:      config,
		Result:      result,
	}

	data, err := json.MarshalIndent(&entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path(fp), data, 0o644)
}

// Sweep removes all expired and corrupt entries, reporting the count.
func (f *File) Sweep() int {
	if f.closed.Load() {
		return 0
	}

	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return 0
	}

	now := f.now()
	removed := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil || entry.CachedAt.IsZero() {
			// Corrupt records are dead weight; drop them here rather
			// than on every read.
			if os.Remove(path) == nil {
				removed++
			}
			continue
		}

		if entry.expired(now, f.ttl) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed
}

// Clear removes every entry unconditionally.
func (f *File) Clear() error {
	if f.closed.Load() {
		return ErrClosed
	}

	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		// Only our own records; the glob can match unrelated files in
		// a shared directory.
		if !strings.HasSuffix(path, ".json") {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close marks the cache closed. The directory is left in place.
func (f *File) Close() error {
	f.closed.Store(true)
	return nil
}
