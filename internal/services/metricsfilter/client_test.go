package metricsfilter

import (
	"context"
	"errors"
	"testing"

	"asrsift/internal/services"
)

func defaultThresholds() Thresholds {
	return Thresholds{MaxCER: 30, MaxWER: 75, MaxEdgeCER: 60, MaxLenDiffRatio: 0.3}
}

func TestBuildArgsDefaults(t *testing.T) {
	client := NewClient(Config{ScriptsDir: "/opt/scripts", Thresholds: defaultThresholds()})

	args := client.BuildArgs("/out/manifest_filtered.json", "/audio")
	want := []string{
		"/opt/scripts/get_metrics_and_filter.py",
		"--manifest=/out/manifest_filtered.json",
		"--audio_dir=/audio",
		"--max_cer=30",
		"--max_wer=75",
		"--max_len_diff_ratio=0.3",
		"--max_edge_cer=60",
	}
	if len(args) != len(want) {
		t.Fatalf("unexpected args %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %q, want %q (full: %v)", i, args[i], want[i], args)
		}
	}
}

func TestBuildArgsFractionalThresholds(t *testing.T) {
	client := NewClient(Config{
		ScriptsDir: "scripts",
		Thresholds: Thresholds{MaxCER: 12.5, MaxWER: 75, MaxEdgeCER: 60, MaxLenDiffRatio: 0.25},
	})

	args := client.BuildArgs("/m.json", "/audio")
	assertContains(t, args, "--max_cer=12.5")
	assertContains(t, args, "--max_len_diff_ratio=0.25")
}

func TestFilterInvokesRunner(t *testing.T) {
	client := NewClient(Config{ScriptsDir: "scripts", Thresholds: defaultThresholds()})

	var gotName string
	var gotArgs []string
	client.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = append([]string(nil), args...)
		return nil
	})

	if err := client.Filter(context.Background(), "/out/manifest_filtered.json", "/audio"); err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	if gotName != "python" {
		t.Fatalf("unexpected interpreter %q", gotName)
	}
	assertContains(t, gotArgs, "--manifest=/out/manifest_filtered.json")
	assertContains(t, gotArgs, "--audio_dir=/audio")
}

func TestFilterRequiresInputs(t *testing.T) {
	client := NewClient(Config{ScriptsDir: "scripts", Thresholds: defaultThresholds()})
	if err := client.Filter(context.Background(), "", "/audio"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty manifest, got %v", err)
	}
	if err := client.Filter(context.Background(), "/m.json", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty audio dir, got %v", err)
	}
}

func TestFilterWrapsToolFailure(t *testing.T) {
	client := NewClient(Config{ScriptsDir: "scripts", Thresholds: defaultThresholds()})
	cause := errors.New("exit status 2")
	client.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return cause
	})

	err := client.Filter(context.Background(), "/m.json", "/audio")
	if !errors.Is(err, services.ErrExternalTool) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped external tool failure, got %v", err)
	}
}

func assertContains(t *testing.T, args []string, want string) {
	t.Helper()
	for _, arg := range args {
		if arg == want {
			return
		}
	}
	t.Fatalf("args %v missing %q", args, want)
}
