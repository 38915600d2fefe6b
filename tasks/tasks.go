package tasks

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is one recorded lifecycle event of a task. Step ids are
// "step_N" with N strictly increasing per task.
type Step struct {
	ID        string                 `json:"id"`
	Action    string                 `json:"action"`
	Timestamp time.Time              `json:"timestamp"`
	Status    string                 `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
	Err       string                 `json:"error,omitempty"`
}

// Step actions recorded by the backend.
const (
	ActionTaskStarted   = "task_started"
	ActionBrowserReady  = "browser_created"
	ActionAgentReady    = "agent_created"
	ActionCacheHit      = "cache_hit"
	ActionTaskCompleted = "task_completed"
	ActionTaskTimeout   = "task_timeout"
	ActionTaskFailed    = "task_failed"
)

// Result is what an executor produced for a task.
type Result struct {
	// Type tags the shape of the result, e.g. "text", "json",
	// "screenshot".
	Type string `json:"type"`

	// Content is the primary output.
	Content string `json:"content"`

	// Data carries structured extraction output, if any.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Task is a unit of browser automation work.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Steps       []Step     `json:"steps"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand out.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	if t.StartedAt != nil {
		v := *t.StartedAt
		out.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		out.CompletedAt = &v
	}
	out.Steps = cloneSteps(t.Steps)
	if t.Result != nil {
		r := *t.Result
		if t.Result.Data != nil {
			r.Data = make(map[string]interface{}, len(t.Result.Data))
			for k, v := range t.Result.Data {
				r.Data[k] = v
			}
		}
		out.Result = &r
	}
	return &out
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s
		if s.Details != nil {
			d := make(map[string]interface{}, len(s.Details))
			for k, v := range s.Details {
				d[k] = v
			}
			out[i].Details = d
		}
	}
	return out
}

// Metrics aggregates task outcomes. AverageTaskDuration is maintained
// as an incremental mean over finished tasks.
type Metrics struct {
	TotalTasks          int           `json:"total_tasks"`
	SuccessfulTasks     int           `json:"successful_tasks"`
	FailedTasks         int           `json:"failed_tasks"`
	AverageTaskDuration time.Duration `json:"average_task_duration"`
}

// RunReport is the envelope returned by a single run attempt.
type RunReport struct {
	TaskID    string        `json:"task_id"`
	Status    Status        `json:"status"`
	Result    *Result       `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	StepCount int           `json:"step_count"`
}

// Report is a serializable snapshot of one task plus backend metrics.
type Report struct {
	Task        *Task     `json:"task"`
	Metrics     Metrics   `json:"metrics"`
	GeneratedAt time.Time `json:"generated_at"`
}
