package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  error  ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "info"})

	log.Info("bridge ready", "port", 3000)

	out := buf.String()
	if !strings.Contains(out, "bridge ready") {
		t.Errorf("Expected message in output, got %q", out)
	}
	if !strings.Contains(out, "port=3000") {
		t.Errorf("Expected attribute in output, got %q", out)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "info", JSON: true})

	log.Info("bridge ready", "port", 3000)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "bridge ready" {
		t.Errorf("Expected msg 'bridge ready', got %v", record["msg"])
	}
	if record["port"] != float64(3000) {
		t.Errorf("Expected port 3000, got %v", record["port"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "warn"})

	log.Info("suppressed")
	log.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("Expected info record filtered out, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("Expected warn record in output, got %q", out)
	}
}
