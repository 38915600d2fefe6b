package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/browserkit/autoerr"
	"github.com/vinayprograms/browserkit/cache"
	"github.com/vinayprograms/browserkit/config"
	"github.com/vinayprograms/browserkit/events"
	"github.com/vinayprograms/browserkit/llm"
	"github.com/vinayprograms/browserkit/logging"
)

// Backend manages task lifecycles. It runs one task at a time; a
// second concurrent Run returns a task-busy error.
type Backend struct {
	cfg      config.Config
	log      *logging.Logger
	exec     Executor
	displays DisplayProvider
	provider llm.Provider
	store    cache.Cache
	sinks    []events.Sink
	idGen    func() string
	now      func() time.Time

	mu      sync.RWMutex
	tasks   map[string]*Task
	running string
	metrics Metrics
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithExecutor sets the automation executor.
func WithExecutor(exec Executor) Option {
	return func(b *Backend) { b.exec = exec }
}

// WithDisplay attaches a virtual display provider for headful runs.
func WithDisplay(d DisplayProvider) Option {
	return func(b *Backend) { b.displays = d }
}

// WithProvider sets the chat backend passed to the executor.
func WithProvider(p llm.Provider) Option {
	return func(b *Backend) { b.provider = p }
}

// WithCache enables result caching.
func WithCache(c cache.Cache) Option {
	return func(b *Backend) { b.store = c }
}

// WithSink registers a step event sink. Sinks are invoked
// synchronously in registration order.
func WithSink(s events.Sink) Option {
	return func(b *Backend) { b.sinks = append(b.sinks, s) }
}

// WithIDGenerator sets a custom ID generator function.
func WithIDGenerator(gen func() string) Option {
	return func(b *Backend) { b.idGen = gen }
}

// WithNow replaces the time source, for tests.
func WithNow(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a task backend with the given configuration.
func NewBackend(cfg config.Config, opts ...Option) *Backend {
	b := &Backend{
		cfg:   cfg,
		log:   logging.Nop(),
		idGen: uuid.NewString,
		now:   time.Now,
		tasks: make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Create registers a new pending task. An empty id gets a generated
// one. Reusing an existing id fails with a duplicate-task error.
func (b *Backend) Create(id, description string) (*Task, error) {
	if id == "" {
		id = b.idGen()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.tasks[id]; exists {
		return nil, autoerr.New(autoerr.CodeDuplicateTask,
			fmt.Sprintf("task %q already exists", id),
			autoerr.WithTaskID(id))
	}

	t := &Task{
		ID:          id,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   b.now(),
	}
	b.tasks[id] = t
	b.log.TaskCreated(id, description)
	return t.Clone(), nil
}

// RunOption adjusts a single run attempt.
type RunOption func(*runOptions)

type runOptions struct {
	timeout      time.Duration
	skipCache    bool
	outputSchema string
}

// WithRunTimeout overrides the configured wall-clock timeout.
func WithRunTimeout(d time.Duration) RunOption {
	return func(o *runOptions) { o.timeout = d }
}

// WithoutCache forces a fresh execution even when a cached result
// exists.
func WithoutCache() RunOption {
	return func(o *runOptions) { o.skipCache = true }
}

// WithOutputSchema asks the executor for structured output matching
// the named schema.
func WithOutputSchema(name string) RunOption {
	return func(o *runOptions) { o.outputSchema = name }
}

// Run executes a task once. Task outcomes (success, timeout, executor
// fault) land in the returned report; the error return is reserved for
// programmer mistakes such as an unknown id, a busy backend, or a
// missing executor.
func (b *Backend) Run(ctx context.Context, id string, opts ...RunOption) (*RunReport, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = b.cfg.Performance.Timeout()
	}

	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return nil, autoerr.New(autoerr.CodeTaskNotFound,
			fmt.Sprintf("task %q not found", id), autoerr.WithTaskID(id))
	}
	if b.running != "" {
		busy := b.running
		b.mu.Unlock()
		return nil, autoerr.New(autoerr.CodeTaskBusy,
			fmt.Sprintf("task %q is already running", busy),
			autoerr.WithTaskID(busy))
	}
	if t.Status.IsTerminal() {
		b.mu.Unlock()
		return nil, autoerr.New(autoerr.CodeTaskBusy,
			fmt.Sprintf("task %q already finished with status %s", id, t.Status),
			autoerr.WithTaskID(id))
	}

	start := b.now()
	t.Status = StatusRunning
	t.StartedAt = &start
	b.running = id
	description := t.Description
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = ""
		b.mu.Unlock()
	}()

	b.recordStep(id, Step{
		Action: ActionTaskStarted,
		Status: "running",
		Details: map[string]interface{}{
			"description": description,
		},
	})

	if !o.skipCache && b.store != nil {
		if entry, hit := b.store.Get(description, b.cfg.Map()); hit {
			b.log.CacheHit(entry.Fingerprint)
			b.recordStep(id, Step{
				Action: ActionCacheHit,
				Status: "completed",
				Details: map[string]interface{}{
					"fingerprint": entry.Fingerprint,
					"cached_at":   entry.CachedAt.Format(time.RFC3339),
				},
			})
			result := resultFromMap(entry.Result)
			return b.finishSuccess(id, start, result, true), nil
		}
	}

	if b.exec == nil {
		return nil, autoerr.New(autoerr.CodeInternal, "no executor configured")
	}

	env, err := b.buildEnvironment(ctx, id)
	if err != nil {
		return b.finishFailure(id, start, err), nil
	}
	env.OutputSchema = o.outputSchema

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, err := b.exec.Execute(runCtx, env, *b.snapshot(id))
	switch {
	case err == nil:
		if b.store != nil {
			if serr := b.store.Set(description, b.cfg.Map(), result.toMap()); serr != nil {
				b.log.Warn("cache store failed", map[string]interface{}{
					"error": serr.Error(),
				})
			}
		}
		return b.finishSuccess(id, start, result, false), nil

	case errors.Is(err, context.DeadlineExceeded):
		elapsed := b.now().Sub(start)
		terr := autoerr.New(autoerr.CodeExecutionTimeout,
			fmt.Sprintf("timed out after %ds", int(o.timeout.Seconds())),
			autoerr.WithTaskID(id))
		b.recordStep(id, Step{
			Action:   ActionTaskTimeout,
			Status:   "failed",
			Duration: elapsed,
			Err:      terr.Error(),
			Details: map[string]interface{}{
				"timeout_seconds": int(o.timeout.Seconds()),
			},
		})
		return b.finish(id, StatusFailed, start, nil, terr), nil

	default:
		return b.finishFailure(id, start, err), nil
	}
}

func (b *Backend) buildEnvironment(ctx context.Context, id string) (Environment, error) {
	env := Environment{
		Provider: b.provider,
		MaxSteps: b.cfg.Performance.MaxSteps,
	}

	if b.displays != nil && !b.cfg.Browser.Headless {
		if err := b.displays.Start(ctx); err != nil {
			return env, err
		}
		env.Display = b.displays.Status(ctx)
		b.recordStep(id, Step{
			Action: ActionBrowserReady,
			Status: "running",
			Details: map[string]interface{}{
				"headless": false,
				"display":  env.Display.Display,
				"vnc_url":  env.Display.VNCURL,
			},
		})
	} else {
		b.recordStep(id, Step{
			Action: ActionBrowserReady,
			Status: "running",
			Details: map[string]interface{}{
				"headless": b.cfg.Browser.Headless,
			},
		})
	}

	if b.provider != nil {
		b.recordStep(id, Step{
			Action: ActionAgentReady,
			Status: "running",
			Details: map[string]interface{}{
				"provider": b.provider.Name(),
				"model":    b.cfg.LLM.Model,
			},
		})
	}
	return env, nil
}

// finishSuccess marks a task completed and records the closing step.
func (b *Backend) finishSuccess(id string, start time.Time, result *Result, fromCache bool) *RunReport {
	elapsed := b.now().Sub(start)
	details := map[string]interface{}{}
	if result != nil {
		details["result_type"] = result.Type
	}
	if fromCache {
		details["from_cache"] = true
	}
	b.recordStep(id, Step{
		Action:   ActionTaskCompleted,
		Status:   "completed",
		Duration: elapsed,
		Details:  details,
	})
	return b.finish(id, StatusCompleted, start, result, nil)
}

// finishFailure marks a task failed from an executor fault.
func (b *Backend) finishFailure(id string, start time.Time, cause error) *RunReport {
	elapsed := b.now().Sub(start)
	err := autoerr.Classify(cause, "task execution failed")
	b.recordStep(id, Step{
		Action:   ActionTaskFailed,
		Status:   "failed",
		Duration: elapsed,
		Err:      err.Error(),
	})
	return b.finish(id, StatusFailed, start, nil, err)
}

// finish applies the terminal state, updates metrics, and builds the
// run report.
func (b *Backend) finish(id string, status Status, start time.Time, result *Result, cause error) *RunReport {
	end := b.now()
	elapsed := end.Sub(start)

	b.mu.Lock()
	t := b.tasks[id]

	// A pause that landed mid-run wins: the task stays paused with the
	// outcome preserved on the record, and nothing counts as finished.
	if t.Status == StatusPaused {
		t.Result = result
		if cause != nil {
			t.Error = cause.Error()
		}
		report := &RunReport{
			TaskID:    id,
			Status:    StatusPaused,
			Result:    result,
			Error:     t.Error,
			Duration:  elapsed,
			StepCount: len(t.Steps),
		}
		b.mu.Unlock()
		b.log.TaskFinished(id, string(StatusPaused), elapsed, cause)
		return report
	}

	t.Status = status
	t.CompletedAt = &end
	t.Result = result
	if cause != nil {
		t.Error = cause.Error()
	}

	b.metrics.TotalTasks++
	if status == StatusCompleted {
		b.metrics.SuccessfulTasks++
		// The running average tracks successful runs only; failures
		// and timeouts would skew the expected duration of a retry.
		b.metrics.AverageTaskDuration += (elapsed - b.metrics.AverageTaskDuration) /
			time.Duration(b.metrics.SuccessfulTasks)
	} else {
		b.metrics.FailedTasks++
	}

	report := &RunReport{
		TaskID:    id,
		Status:    status,
		Result:    result,
		Error:     t.Error,
		Duration:  elapsed,
		StepCount: len(t.Steps),
	}
	b.mu.Unlock()

	b.log.TaskFinished(id, string(status), elapsed, cause)
	return report
}

// Status returns a copy of the task. Unknown ids report a not-found
// error, never a panic.
func (b *Backend) Status(id string) (*Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, autoerr.New(autoerr.CodeTaskNotFound,
			fmt.Sprintf("task %q not found", id), autoerr.WithTaskID(id))
	}
	return t.Clone(), nil
}

// Steps returns a copy of the task's recorded steps.
func (b *Backend) Steps(id string) ([]Step, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, autoerr.New(autoerr.CodeTaskNotFound,
			fmt.Sprintf("task %q not found", id), autoerr.WithTaskID(id))
	}
	return cloneSteps(t.Steps), nil
}

// Pause moves a running task to paused.
func (b *Backend) Pause(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return autoerr.New(autoerr.CodeTaskNotFound,
			fmt.Sprintf("task %q not found", id), autoerr.WithTaskID(id))
	}
	if t.Status != StatusRunning {
		return autoerr.New(autoerr.CodeTaskBusy,
			fmt.Sprintf("task %q is %s, only running tasks pause", id, t.Status),
			autoerr.WithTaskID(id))
	}
	t.Status = StatusPaused
	return nil
}

// Tasks returns copies of every known task.
func (b *Backend) Tasks() []*Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Metrics returns a snapshot of aggregate outcomes.
func (b *Backend) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// Report builds a serializable snapshot of one task plus metrics.
func (b *Backend) Report(id string) (*Report, error) {
	t, err := b.Status(id)
	if err != nil {
		return nil, err
	}
	return &Report{
		Task:        t,
		Metrics:     b.Metrics(),
		GeneratedAt: b.now(),
	}, nil
}

// WriteReport writes the task report as indented JSON to path.
func (b *Backend) WriteReport(id, path string) error {
	report, err := b.Report(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// snapshot returns a copy of the task for handing to the executor.
func (b *Backend) snapshot(id string) *Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tasks[id].Clone()
}

// recordStep appends a lifecycle step and fans it out to sinks. The
// backend assigns the step id and timestamp; callers fill the rest.
// A sink panic is logged and swallowed so observers can never fail a
// task.
func (b *Backend) recordStep(id string, step Step) {
	b.mu.Lock()
	t, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	step.ID = fmt.Sprintf("step_%d", len(t.Steps)+1)
	step.Timestamp = b.now()
	t.Steps = append(t.Steps, step)
	b.mu.Unlock()

	b.log.StepRecorded(id, step.ID, step.Action, step.Status)

	ev := events.StepEvent{
		TaskID:    id,
		StepID:    step.ID,
		Action:    step.Action,
		Status:    step.Status,
		Timestamp: step.Timestamp,
	}
	for _, sink := range b.sinks {
		b.deliver(sink, ev)
	}
}

func (b *Backend) deliver(sink events.Sink, ev events.StepEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("step sink panicked", map[string]interface{}{
				"task":  ev.TaskID,
				"step":  ev.StepID,
				"panic": fmt.Sprint(r),
			})
		}
	}()
	sink.OnStep(ev)
}

func (r *Result) toMap() map[string]interface{} {
	if r == nil {
		return nil
	}
	out := map[string]interface{}{
		"type":    r.Type,
		"content": r.Content,
	}
	if r.Data != nil {
		out["data"] = r.Data
	}
	return out
}

func resultFromMap(m map[string]interface{}) *Result {
	if m == nil {
		return nil
	}
	r := &Result{}
	if v, ok := m["type"].(string); ok {
		r.Type = v
	}
	if v, ok := m["content"].(string); ok {
		r.Content = v
	}
	if v, ok := m["data"].(map[string]interface{}); ok {
		r.Data = v
	}
	return r
}
