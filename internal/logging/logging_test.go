package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for value, want := range map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warning": slog.LevelWarn, " error ": slog.LevelError} {
		got, err := ParseLevel(value)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v %v", value, want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer closeFn()
	logger.Info("dropped")
	logger.Warn("kept", "component", "stream")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "kept" || record["component"] != "stream" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextWithoutColour(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hello", "request_id", "r-1")
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "request_id=r-1") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes for a buffer, got %q", out)
	}
}

func TestNewColourOnTerminal(t *testing.T) {
	original := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = original })

	var buf bytes.Buffer
	logger, _, err := New(Options{Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Error("boom")
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected colour codes, got %q", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docwatch.log")
	logger, closeFn, err := New(Options{Format: "json", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New(Options{Format: "xml", Writer: io.Discard}); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}
