package events

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestDefaultNATSConfig(t *testing.T) {
	cfg := DefaultNATSConfig()

	if cfg.URL != nats.DefaultURL {
		t.Errorf("URL = %q, want %q", cfg.URL, nats.DefaultURL)
	}
	if cfg.ReconnectWait != 2*time.Second {
		t.Errorf("ReconnectWait = %v, want 2s", cfg.ReconnectWait)
	}
	if cfg.MaxReconnects != -1 {
		t.Errorf("MaxReconnects = %d, want -1 (unlimited)", cfg.MaxReconnects)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.BufferSize != DefaultConfig().BufferSize {
		t.Errorf("BufferSize = %d, want the bus default", cfg.BufferSize)
	}
}

// applyNATSOptions materializes options into a nats.Options struct so
// their effect can be inspected without a server.
func applyNATSOptions(t *testing.T, opts []nats.Option) nats.Options {
	t.Helper()
	var o nats.Options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			t.Fatalf("option failed: %v", err)
		}
	}
	return o
}

func TestBuildNATSOptionsDefaults(t *testing.T) {
	cfg := DefaultNATSConfig()
	opts := buildNATSOptions(cfg)
	if len(opts) != 3 {
		t.Fatalf("got %d options, want 3 without auth or a client name", len(opts))
	}

	o := applyNATSOptions(t, opts)
	if o.ReconnectWait != cfg.ReconnectWait {
		t.Errorf("ReconnectWait = %v", o.ReconnectWait)
	}
	if o.MaxReconnect != cfg.MaxReconnects {
		t.Errorf("MaxReconnect = %d", o.MaxReconnect)
	}
	if o.Timeout != cfg.ConnectTimeout {
		t.Errorf("Timeout = %v", o.Timeout)
	}
	if o.Name != "" || o.Token != "" || o.User != "" {
		t.Errorf("unexpected identity options: name=%q token=%q user=%q", o.Name, o.Token, o.User)
	}
}

func TestBuildNATSOptionsAuth(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.Name = "step-bus"
	cfg.Token = "s3cret"
	cfg.User = "automation"
	cfg.Password = "hunter2"

	o := applyNATSOptions(t, buildNATSOptions(cfg))
	if o.Name != "step-bus" {
		t.Errorf("Name = %q", o.Name)
	}
	if o.Token != "s3cret" {
		t.Errorf("Token = %q", o.Token)
	}
	if o.User != "automation" || o.Password != "hunter2" {
		t.Errorf("UserInfo = %q/%q", o.User, o.Password)
	}
}

func TestNATSBusRejectsInvalidSubject(t *testing.T) {
	// Subject validation runs before the connection is touched, so a
	// nil conn is fine here.
	bus := NewNATSBusFromConn(nil, DefaultNATSConfig())

	if err := bus.Publish("", []byte("x")); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("Publish with empty subject = %v, want ErrInvalidSubject", err)
	}
	if _, err := bus.Subscribe(""); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("Subscribe with empty subject = %v, want ErrInvalidSubject", err)
	}
}

func TestNewNATSBusFromConnDefaultsBuffer(t *testing.T) {
	bus := NewNATSBusFromConn(nil, NATSConfig{})
	if bus.config.BufferSize != DefaultConfig().BufferSize {
		t.Errorf("BufferSize = %d, want the bus default", bus.config.BufferSize)
	}
}
