package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrValidation, "transcribe", "validate", "manifest path required", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	want := "validation error: transcribe: validate: manifest path required"
	if err.Error() != want {
		t.Fatalf("unexpected message %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrExternalTool, "filter", "run", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	if code := ExitCode(nil); code != 0 {
		t.Fatalf("nil error should map to 0, got %d", code)
	}
	if code := ExitCode(errors.New("plain")); code != 1 {
		t.Fatalf("plain error should map to 1, got %d", code)
	}

	cmd := exec.Command("sh", "-c", "exit 42")
	runErr := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		t.Skipf("could not produce exit error: %v", runErr)
	}
	wrapped := fmt.Errorf("transcription failed: %w", runErr)
	if code := ExitCode(wrapped); code != 42 {
		t.Fatalf("expected propagated exit code 42, got %d", code)
	}
}

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	if _, ok := RunIDFromContext(ctx); ok {
		t.Fatal("empty context should not carry a run id")
	}
	ctx = WithRunID(ctx, "run-123")
	ctx = WithStage(ctx, "transcribe")
	if id, ok := RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("run id round trip failed: %q %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("stage round trip failed: %q %v", stage, ok)
	}
}
