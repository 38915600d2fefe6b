// Package logging provides real-time console output for automation runs.
// The task report JSON is the forensic record; this logger exists for
// live monitoring of lifecycle, cache and display-stack events.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger provides leveled key=value logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	taskID    string
}

// New creates a new Logger writing to stdout at INFO.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// Nop returns a logger that discards everything. Useful as a default
// for injected collaborators in tests.
func Nop() *Logger {
	return &Logger{
		output:   io.Discard,
		minLevel: LevelError,
	}
}

// WithComponent returns a new logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		taskID:    l.taskID,
	}
}

// WithTaskID returns a new logger that attaches the task id to every line.
func (l *Logger) WithTaskID(id string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		taskID:    id,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.taskID != "" {
		fieldStr = fmt.Sprintf(" task=%s%s", l.taskID, fieldStr)
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Lifecycle-derived logging methods ---
// Called by the task backend and display supervisor as events happen,
// giving real-time output without duplicating the report data.

// TaskCreated logs task creation.
func (l *Logger) TaskCreated(id, description string) {
	l.Info("task_created", map[string]interface{}{
		"id":          id,
		"description": truncate(description, 80),
	})
}

// StepRecorded logs a recorded lifecycle step.
func (l *Logger) StepRecorded(taskID, stepID, action, status string) {
	l.Debug("step", map[string]interface{}{
		"task":   taskID,
		"step":   stepID,
		"action": action,
		"status": status,
	})
}

// TaskFinished logs a terminal task state.
func (l *Logger) TaskFinished(id, status string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"id":       id,
		"status":   status,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("task_finished", fields)
		return
	}
	l.Info("task_finished", fields)
}

// CacheHit logs a result served from cache.
func (l *Logger) CacheHit(fingerprint string) {
	l.Info("cache_hit", map[string]interface{}{
		"fingerprint": truncate(fingerprint, 12),
	})
}

// RetryWait logs a pending retry.
func (l *Logger) RetryWait(attempt int, delay time.Duration, err error) {
	l.Warn("retry_wait", map[string]interface{}{
		"attempt": attempt,
		"delay":   delay.String(),
		"error":   err.Error(),
	})
}

// StageStarted logs a display stage coming up.
func (l *Logger) StageStarted(stage string) {
	l.Info("stage_started", map[string]interface{}{
		"stage": stage,
	})
}

// StageSkipped logs a stage that was already live.
func (l *Logger) StageSkipped(stage string) {
	l.Debug("stage_already_live", map[string]interface{}{
		"stage": stage,
	})
}

// StageStopped logs a stage teardown, noting escalation to SIGKILL.
func (l *Logger) StageStopped(stage string, forced bool) {
	fields := map[string]interface{}{
		"stage": stage,
	}
	if forced {
		fields["forced"] = true
		l.Warn("stage_killed", fields)
		return
	}
	l.Info("stage_stopped", fields)
}

// StageFailed logs a soft-dependency stage failure.
func (l *Logger) StageFailed(stage string, err error) {
	l.Warn("stage_failed", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
