package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 4})
	defer bus.Close()

	sub, err := bus.Subscribe("steps.task-1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish("steps.task-1", []byte("hello")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "hello" {
			t.Errorf("got %q, want %q", msg.Data, "hello")
		}
		if msg.Subject != "steps.task-1" {
			t.Errorf("subject = %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryBusSubjectIsolation(t *testing.T) {
	bus := NewMemoryBus(Config{})
	defer bus.Close()

	sub, _ := bus.Subscribe("steps.a")
	bus.Publish("steps.b", []byte("other"))

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected delivery: %s", msg.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(Config{})
	defer bus.Close()

	sub, _ := bus.Subscribe("steps.x")
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	// Channel must be closed.
	if _, ok := <-sub.Messages(); ok {
		t.Error("expected closed channel after unsubscribe")
	}

	// Double-unsubscribe is a no-op.
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("second unsubscribe: %v", err)
	}
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(Config{})
	bus.Close()

	if err := bus.Publish("steps.x", nil); err != ErrClosed {
		t.Errorf("publish after close = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe("steps.x"); err != ErrClosed {
		t.Errorf("subscribe after close = %v, want ErrClosed", err)
	}
}

func TestValidateSubject(t *testing.T) {
	if err := ValidateSubject(""); err != ErrInvalidSubject {
		t.Errorf("empty subject = %v, want ErrInvalidSubject", err)
	}
	if err := ValidateSubject("steps.abc"); err != nil {
		t.Errorf("valid subject rejected: %v", err)
	}
}

func TestSubjectForTask(t *testing.T) {
	if got := SubjectForTask("abc-123"); got != "steps.abc-123" {
		t.Errorf("SubjectForTask = %q", got)
	}
}

func TestBusSinkPublishesJSON(t *testing.T) {
	bus := NewMemoryBus(Config{})
	defer bus.Close()

	sub, _ := bus.Subscribe("steps.task-9")
	sink := NewBusSink(bus)

	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sink.OnStep(StepEvent{
		TaskID:    "task-9",
		StepID:    "step_1",
		Action:    "task_started",
		Timestamp: when,
	})

	select {
	case msg := <-sub.Messages():
		var ev StepEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if ev.StepID != "step_1" || ev.Action != "task_started" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if !ev.Timestamp.Equal(when) {
			t.Errorf("timestamp = %v, want %v", ev.Timestamp, when)
		}
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestSinkFunc(t *testing.T) {
	var got StepEvent
	var sink Sink = SinkFunc(func(ev StepEvent) { got = ev })
	sink.OnStep(StepEvent{TaskID: "t", StepID: "step_2"})
	if got.StepID != "step_2" {
		t.Errorf("SinkFunc did not forward event: %+v", got)
	}
}
