package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"asrsift/internal/services"
)

func TestConsoleHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level))

	logger.Info("transcription started", String("model", "model.nemo"), Int("batch_size", 4))

	line := buf.String()
	if !strings.Contains(line, "INF transcription started") {
		t.Fatalf("missing level tag or message: %q", line)
	}
	if !strings.Contains(line, "model=model.nemo") || !strings.Contains(line, "batch_size=4") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Info("done", String("path", "/tmp/with space/manifest.json"))

	if !strings.Contains(buf.String(), `path="/tmp/with space/manifest.json"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, level))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be suppressed: %q", out)
	}
	if !strings.Contains(out, "WRN visible") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWithContextAddsRunAndStage(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	ctx := services.WithRunID(context.Background(), "run-abc")
	ctx = services.WithStage(ctx, "filter")
	WithContext(ctx, base).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-abc") || !strings.Contains(line, "stage=filter") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
