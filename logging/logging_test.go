package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelInfo)

	// Debug should be filtered
	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at INFO level")
	}

	// Info should pass
	logger.Info("info message")
	if buf.Len() == 0 {
		t.Error("info message should be logged")
	}

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Error("log should contain INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("log should contain the message")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithComponent("display")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "[display]") {
		t.Errorf("expected component 'display' in log, got: %s", output)
	}
}

func TestLogger_WithTaskID(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithTaskID("t-42")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "task=t-42") {
		t.Errorf("expected task id in log, got: %s", output)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.Info("cache_hit", map[string]interface{}{"fingerprint": "ab12cd"})

	output := buf.String()
	if !strings.Contains(output, "fingerprint=ab12cd") {
		t.Errorf("expected key=value field, got: %s", output)
	}
}

func TestLogger_TaskFinished(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.TaskFinished("t-1", "failed", 3*time.Second, errors.New("timed out after 3s"))

	output := buf.String()
	if !strings.Contains(output, "ERROR") {
		t.Error("failed tasks should log at ERROR")
	}
	if !strings.Contains(output, "timed out") {
		t.Errorf("expected error message, got: %s", output)
	}

	buf.Reset()
	logger.TaskFinished("t-2", "completed", time.Second, nil)
	if !strings.Contains(buf.String(), "INFO") {
		t.Error("completed tasks should log at INFO")
	}
}

func TestLogger_Nop(t *testing.T) {
	logger := Nop()
	// Must not panic and must stay silent.
	logger.Error("discarded")
	logger.StageFailed("window-manager", errors.New("no X server"))
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("0123456789abcdef", 10); got != "0123456789..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
