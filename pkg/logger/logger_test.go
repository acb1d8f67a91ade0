package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"Debug level", "debug"},
		{"Info level", "info"},
		{"Warn level", "warn"},
		{"Error level", "error"},
		{"Default level", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.level, &buf)
			if logger == nil {
				t.Error("Expected logger to be created")
			}
		})
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText("info", &buf)
	if logger == nil {
		t.Error("Expected text logger to be created")
	}

	logger.Info("resonance solve complete")
	output := buf.String()
	if !strings.Contains(output, "resonance solve complete") {
		t.Errorf("Expected log output to contain message, got: %s", output)
	}
}

func TestFromFlags(t *testing.T) {
	var buf bytes.Buffer
	logger := FromFlags("json", "info", &buf)
	SetDefault(logger)
	Info("run created", "run_id", "run-1")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output for json format, got: %s", buf.String())
	}

	buf.Reset()
	SetDefault(FromFlags("text", "info", &buf))
	Info("run created")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected text output for text format, got: %s", buf.String())
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Info when debug level", "debug", Info, "info message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Info when info level", "info", Info, "info message", true},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Error when info level", "info", Error, "error message", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.logLevel, &buf)
			SetDefault(logger)

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output to contain '%s', got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output NOT to contain '%s', but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", &buf)
	SetDefault(logger)

	Info("ring solved", "ring", 3, "loaded_q", 12500.0)
	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log output: %v", err)
	}

	if logEntry["msg"] != "ring solved" {
		t.Errorf("Expected msg 'ring solved', got '%v'", logEntry["msg"])
	}
	if logEntry["ring"] != float64(3) {
		t.Errorf("Expected ring 3, got '%v'", logEntry["ring"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", &buf)
	SetDefault(logger)

	contextLogger := With("run_id", "run-123", "kind", "simulate")
	contextLogger.Info("run started")

	output := buf.String()
	if !strings.Contains(output, "run_id") {
		t.Error("Expected log output to contain 'run_id'")
	}
	if !strings.Contains(output, "run-123") {
		t.Error("Expected log output to contain 'run-123'")
	}
	if !strings.Contains(output, "kind") {
		t.Error("Expected log output to contain 'kind'")
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", &buf)
	SetDefault(logger)

	Debug("trace step recorded")
	output := buf.String()

	if !strings.Contains(output, "trace step recorded") {
		t.Error("Expected debug message to be logged after SetDefault")
	}
}
