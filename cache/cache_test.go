package cache

import (
	"testing"
	"time"
)

func TestFingerprintKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"browser": map[string]interface{}{"headless": true, "width": 1920},
		"llm":     map[string]interface{}{"model": "gemini-2.5-flash"},
	}
	b := map[string]interface{}{
		"llm":     map[string]interface{}{"model": "gemini-2.5-flash"},
		"browser": map[string]interface{}{"width": 1920, "headless": true},
	}

	if Fingerprint("extract prices", a) != Fingerprint("extract prices", b) {
		t.Error("Semantically identical configs must produce the same fingerprint")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	cfg := map[string]interface{}{"headless": true}

	if Fingerprint("task a", cfg) == Fingerprint("task b", cfg) {
		t.Error("Different descriptions must not collide")
	}
	if Fingerprint("task a", cfg) == Fingerprint("task a", map[string]interface{}{"headless": false}) {
		t.Error("Different configs must not collide")
	}
}

func TestMemoryGetAfterSet(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	cfg := map[string]interface{}{"timeout": 300.0, "headless": true}
	result := map[string]interface{}{"output": "logged in"}

	if err := c.Set("login task", cfg, result); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Same config, different insertion order.
	reordered := map[string]interface{}{"headless": true, "timeout": 300.0}
	entry, ok := c.Get("login task", reordered)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if entry.Result["output"] != "logged in" {
		t.Errorf("Expected stored result, got %v", entry.Result)
	}
	if entry.Description != "login task" {
		t.Errorf("Expected description snapshot, got %q", entry.Description)
	}
}

func TestMemoryMiss(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	if _, ok := c.Get("never stored", nil); ok {
		t.Error("Expected miss for absent entry")
	}
}

func TestMemoryTTLExpiryOnRead(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewMemory(WithMemoryTTL(time.Hour), WithMemoryClock(func() time.Time { return clock() }))
	defer c.Close()

	cfg := map[string]interface{}{"k": "v"}
	if err := c.Set("stale task", cfg, map[string]interface{}{"output": "old"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Advance past the TTL.
	later := now.Add(2 * time.Hour)
	clock = func() time.Time { return later }

	if _, ok := c.Get("stale task", cfg); ok {
		t.Fatal("Expired entry must not be returned")
	}
	if c.Len() != 0 {
		t.Error("The read that discovers expiry must delete the backing record")
	}
}

func TestMemorySweep(t *testing.T) {
	now := time.Now()
	current := now
	c := NewMemory(WithMemoryTTL(time.Hour), WithMemoryClock(func() time.Time { return current }))
	defer c.Close()

	_ = c.Set("old", map[string]interface{}{"n": 1.0}, map[string]interface{}{})
	current = now.Add(30 * time.Minute)
	_ = c.Set("fresh", map[string]interface{}{"n": 2.0}, map[string]interface{}{})

	current = now.Add(90 * time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Errorf("Expected 1 swept entry, got %d", removed)
	}
	if _, ok := c.Get("fresh", map[string]interface{}{"n": 2.0}); !ok {
		t.Error("Fresh entry must survive the sweep")
	}
}

func TestMemoryClear(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	_ = c.Set("a", nil, map[string]interface{}{})
	_ = c.Set("b", nil, map[string]interface{}{})

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestMemoryLastWriteWins(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	cfg := map[string]interface{}{"k": "v"}
	_ = c.Set("task", cfg, map[string]interface{}{"output": "first"})
	_ = c.Set("task", cfg, map[string]interface{}{"output": "second"})

	entry, ok := c.Get("task", cfg)
	if !ok {
		t.Fatal("Expected hit")
	}
	if entry.Result["output"] != "second" {
		t.Errorf("Expected last write to win, got %v", entry.Result["output"])
	}
}

func TestMemoryClosed(t *testing.T) {
	c := NewMemory()
	_ = c.Set("task", nil, map[string]interface{}{})
	_ = c.Close()

	if _, ok := c.Get("task", nil); ok {
		t.Error("Closed cache must miss")
	}
	if err := c.Set("task", nil, nil); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestEntryCloneIsolation(t *testing.T) {
	c := NewMemory()
	defer c.Close()

	cfg := map[string]interface{}{"k": "v"}
	_ = c.Set("task", cfg, map[string]interface{}{"output": "original"})

	entry, _ := c.Get("task", cfg)
	entry.Result["output"] = "mutated"

	again, _ := c.Get("task", cfg)
	if again.Result["output"] != "original" {
		t.Error("Caller mutations must not reach the stored entry")
	}
}
