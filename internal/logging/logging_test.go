package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormatEmitsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: LevelInfo, Format: FormatJSON, Component: "monitor"}, &buf)

	l.Info("certificate issued", "tool", "FileWriter")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "monitor" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["tool"] != "FileWriter" {
		t.Errorf("tool attr = %v", entry["tool"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: LevelWarn, Format: FormatText}, &buf)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold entries leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn entry missing: %s", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tw.log")
	l, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestFileOutputRequiresPath(t *testing.T) {
	if _, err := New(&Config{Output: "file"}); err == nil {
		t.Error("expected error for file output without path")
	}
}
