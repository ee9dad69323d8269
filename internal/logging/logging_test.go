package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meltforce/liftlog/internal/config"
)

// TestNewText verifies the default text handler respects the level.
func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Errorf("output = %q, want text record with k=v", out)
	}
}

// TestNewJSON verifies the json format emits one object per record.
func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	defer closer.Close()

	log.Info("saved", "sessions", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decoding record %q: %v", buf.String(), err)
	}
	if rec["msg"] != "saved" {
		t.Errorf("msg = %v, want saved", rec["msg"])
	}
	if rec["sessions"] != float64(3) {
		t.Errorf("sessions = %v, want 3", rec["sessions"])
	}
}

// TestNewFile verifies records reach both the writer and the rotated file.
func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liftlog.log")
	var buf bytes.Buffer
	log, closer := New(config.LogConfig{Level: "info", Format: "text", File: path}, &buf)

	log.Info("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("file = %q, want record", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("writer = %q, want record", buf.String())
	}
}

// TestLevel verifies level names and the info fallback.
func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := Level(name); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}
