package events

import (
	"encoding/json"
	"time"

	"github.com/vinayprograms/browserkit/logging"
)

// StepEvent describes a single recorded step of a running task.
type StepEvent struct {
	TaskID    string    `json:"task_id"`
	StepID    string    `json:"step_id"`
	Action    string    `json:"action"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives step events. Implementations must not block for long;
// they are invoked synchronously on the task's execution path.
type Sink interface {
	OnStep(ev StepEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev StepEvent)

func (f SinkFunc) OnStep(ev StepEvent) { f(ev) }

// LogSink writes each step to a structured logger.
type LogSink struct {
	log *logging.Logger
}

// NewLogSink creates a sink that logs every step event.
func NewLogSink(log *logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) OnStep(ev StepEvent) {
	s.log.StepRecorded(ev.TaskID, ev.StepID, ev.Action, ev.Status)
}

// SubjectForTask returns the bus subject carrying a task's step events.
func SubjectForTask(taskID string) string {
	return "steps." + taskID
}

// BusSink publishes each step event as JSON on the task's subject.
type BusSink struct {
	bus Bus
}

// NewBusSink creates a sink that forwards steps to a message bus.
func NewBusSink(bus Bus) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) OnStep(ev StepEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	// Publish failures are dropped; step delivery is best-effort and
	// must never fail the task.
	_ = s.bus.Publish(SubjectForTask(ev.TaskID), data)
}
