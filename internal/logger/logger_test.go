package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogf_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(LevelInfo)

	l.Debug("hidden %d", 1)
	l.Warning("store busy: %s", "locked")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "] WARNING: store busy: locked\n") || !strings.HasPrefix(out, "[") {
		t.Errorf("Unexpected line %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" Warn ", LevelWarning, true},
		{"ERROR", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %s, %v", tt.in, got, ok)
		}
	}
}

func TestSetOutputFile(t *testing.T) {
	t.Setenv("TOUCHMON_STDERR_LOG", "")
	t.Setenv("TOUCHMON_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "touchmon.log")

	prev := SetDefault(NewWithWriter(&bytes.Buffer{}))
	defer SetDefault(prev)

	SetOutputFile(path)
	Info("sampling every %dms", 1000)
	current().Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Log file missing: %v", err)
	}
	if !strings.Contains(string(data), "INFO: sampling every 1000ms") {
		t.Errorf("Unexpected log contents %q", data)
	}
}
