package obslog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.log")
	l, err := Build(Options{Level: "debug", ToFile: true, File: path, Format: "json"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Info("move_applied", zap.String("notation", "O-O"))
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, raw)
	}
	if rec["msg"] != "move_applied" || rec["notation"] != "O-O" || rec["level"] != "info" {
		t.Fatalf("record = %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel, "WARN": zapcore.WarnLevel, "error": zapcore.ErrorLevel, "": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetNilFallsBackToNop(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })
	Set(nil)
	if L() == nil {
		t.Fatalf("L() returned nil")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FORMAT", "json")
	opts := OptionsFromEnv()
	if opts.Level != "warn" || !opts.ToFile || opts.Format != "json" || !opts.Console {
		t.Fatalf("opts = %+v", opts)
	}
}
