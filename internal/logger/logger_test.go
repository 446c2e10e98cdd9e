package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"DEBUG": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"bogus": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn := New(Options{Level: "warn", Console: &buf})
	log.Info("hidden")
	log.Warn("shown", zap.String("scene", "castle"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "castle") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestFileCoreWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	cfg := DefaultFileConfig(path)
	cfg.Compress = false
	log, closeFn := New(Options{Level: "debug", File: cfg})
	log.Named("editor").Debug("toggled", zap.Int("applied", 3))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(b))
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("log line is not JSON: %q: %v", line, err)
	}
	if rec["msg"] != "toggled" || rec["logger"] != "editor" || rec["level"] != "debug" {
		t.Fatalf("record=%v", rec)
	}
	if rec["applied"] != float64(3) {
		t.Fatalf("applied=%v", rec["applied"])
	}
}

func TestNoSinksIsNop(t *testing.T) {
	log, closeFn := New(Options{})
	log.Error("nowhere")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
