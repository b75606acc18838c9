package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLogger_DomainFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("features extracted",
		Stage("features"),
		Community("c1"),
		Edge("(c1, v1)"),
		Count(3),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != "INFO" || e.Message != "features extracted" {
		t.Errorf("Unexpected entry header: %+v", e)
	}
	if e.Fields["stage"] != "features" || e.Fields["community"] != "c1" || e.Fields["edge"] != "(c1, v1)" {
		t.Errorf("Unexpected fields: %v", e.Fields)
	}
	if e.Fields["count"] != float64(3) {
		t.Errorf("Expected count 3, got %v", e.Fields["count"])
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	if entries := decodeLines(t, &buf); len(entries) != 2 {
		t.Errorf("Expected 2 entries at WARN, got %d", len(entries))
	}
}

func TestJSONLogger_WithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf, InfoLevel)
	child := root.With(RunID("run-1"), Component("sampler"))

	child.Debug("hidden")
	root.SetLevel(DebugLevel)
	child.Debug("visible")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["run_id"] != "run-1" || entries[0].Fields["component"] != "sampler" {
		t.Errorf("Child fields missing: %v", entries[0].Fields)
	}
	if child.GetLevel() != DebugLevel {
		t.Errorf("Child should share the root level, got %v", child.GetLevel())
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, InfoLevel).Info("plain")

	if strings.Contains(buf.String(), "fields") {
		t.Errorf("Entry without fields should omit the key: %s", buf.String())
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "stage finished", Stage("sampling"))
	time.Sleep(time.Millisecond)
	if d := timer.End(Count(10)); d <= 0 {
		t.Errorf("Expected positive duration, got %v", d)
	}

	failed := StartTimer(logger, "stage failed", Stage("fit"))
	failed.EndError(errors.New("boom"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["latency"] == nil || entries[0].Fields["count"] != float64(10) {
		t.Errorf("End should log latency and extra fields: %v", entries[0].Fields)
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "boom" {
		t.Errorf("EndError should log the error: %+v", entries[1])
	}
}

func TestOrDefault(t *testing.T) {
	nop := NewNopLogger()
	if OrDefault(nop) != nop {
		t.Error("OrDefault should return a non-nil logger unchanged")
	}

	var buf bytes.Buffer
	custom := NewJSONLogger(&buf, InfoLevel)
	SetDefaultLogger(custom)
	if OrDefault(nil) != Logger(custom) {
		t.Error("OrDefault(nil) should return the default logger")
	}
}

func TestErrorField(t *testing.T) {
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) should have nil value, got %v", f.Value)
	}
	if f := Error(errors.New("x")); f.Value != "x" {
		t.Errorf("Error(x) = %v", f.Value)
	}
}
