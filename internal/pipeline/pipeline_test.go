package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"asrsift/internal/pipeline"
	"asrsift/internal/runs"
	"asrsift/internal/services"
)

type fakeTranscriber struct {
	calls [][2]string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, manifest, outputPath string) error {
	f.calls = append(f.calls, [2]string{manifest, outputPath})
	return f.err
}

type fakeFilter struct {
	calls [][2]string
	err   error
}

func (f *fakeFilter) Filter(_ context.Context, manifest, audioDir string) error {
	f.calls = append(f.calls, [2]string{manifest, audioDir})
	return f.err
}

func newTestPipeline(t *testing.T, tr pipeline.Transcriber, fl pipeline.MetricsFilter, store *runs.Store) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(pipeline.Options{
		Transcriber:  tr,
		Filter:       fl,
		Store:        store,
		LockDisabled: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestFilteredManifestPath(t *testing.T) {
	got := pipeline.FilteredManifestPath("/a/b/manifest.json")
	if got != "/a/b/manifest_filtered.json" {
		t.Fatalf("unexpected derived path %q", got)
	}
	if pipeline.FilteredManifestPath("manifest.json") != "manifest_filtered.json" {
		t.Fatalf("unexpected derived path for bare filename")
	}
}

func TestRunInvokesBothStagesInOrder(t *testing.T) {
	tr := &fakeTranscriber{}
	fl := &fakeFilter{}
	p := newTestPipeline(t, tr, fl, nil)

	req := pipeline.Request{
		Model:    "model.nemo",
		AudioDir: "/audio",
		Manifest: "/out/manifest.json",
	}
	if err := p.Run(context.Background(), req); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(tr.calls) != 1 {
		t.Fatalf("expected 1 transcription call, got %d", len(tr.calls))
	}
	if tr.calls[0] != [2]string{"/out/manifest.json", "/out/manifest_filtered.json"} {
		t.Fatalf("unexpected transcription call %v", tr.calls[0])
	}
	if len(fl.calls) != 1 {
		t.Fatalf("expected 1 filter call, got %d", len(fl.calls))
	}
	if fl.calls[0] != [2]string{"/out/manifest_filtered.json", "/audio"} {
		t.Fatalf("unexpected filter call %v", fl.calls[0])
	}
}

func TestRunRejectsMissingRequiredParameters(t *testing.T) {
	cases := []struct {
		name string
		req  pipeline.Request
	}{
		{"missing model", pipeline.Request{AudioDir: "/audio", Manifest: "/m.json"}},
		{"missing audio dir", pipeline.Request{Model: "m", Manifest: "/m.json"}},
		{"missing manifest", pipeline.Request{Model: "m", AudioDir: "/audio"}},
		{"all missing", pipeline.Request{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTranscriber{}
			fl := &fakeFilter{}
			p := newTestPipeline(t, tr, fl, nil)

			err := p.Run(context.Background(), tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(tr.calls) != 0 || len(fl.calls) != 0 {
				t.Fatal("no tool may be invoked when validation fails")
			}
		})
	}
}

func TestTranscriptionFailureSkipsFilter(t *testing.T) {
	toolErr := errors.New("exit status 7")
	tr := &fakeTranscriber{err: toolErr}
	fl := &fakeFilter{}
	p := newTestPipeline(t, tr, fl, nil)

	err := p.Run(context.Background(), pipeline.Request{
		Model: "m", AudioDir: "/audio", Manifest: "/m.json",
	})
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected transcription failure to propagate, got %v", err)
	}
	if len(fl.calls) != 0 {
		t.Fatal("filter must not run after transcription failure")
	}
}

func TestFilterFailurePropagates(t *testing.T) {
	toolErr := errors.New("exit status 2")
	tr := &fakeTranscriber{}
	fl := &fakeFilter{err: toolErr}
	p := newTestPipeline(t, tr, fl, nil)

	err := p.Run(context.Background(), pipeline.Request{
		Model: "m", AudioDir: "/audio", Manifest: "/m.json",
	})
	if !errors.Is(err, toolErr) {
		t.Fatalf("expected filter failure to propagate, got %v", err)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := transcriberFunc(func(stageCtx context.Context, manifest, outputPath string) error {
		cancel()
		<-stageCtx.Done()
		return stageCtx.Err()
	})
	fl := &fakeFilter{}
	p := newTestPipeline(t, tr, fl, nil)

	err := p.Run(ctx, pipeline.Request{
		Model: "m", AudioDir: "/audio", Manifest: "/m.json",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to propagate, got %v", err)
	}
	if len(fl.calls) != 0 {
		t.Fatal("filter must not run after cancellation")
	}
}

func TestPreflightFailureBlocksTools(t *testing.T) {
	tr := &fakeTranscriber{}
	fl := &fakeFilter{}
	p, err := pipeline.New(pipeline.Options{
		Transcriber:  tr,
		Filter:       fl,
		Preflight:    func() error { return errors.New("python missing") },
		LockDisabled: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	runErr := p.Run(context.Background(), pipeline.Request{
		Model: "m", AudioDir: "/audio", Manifest: "/m.json",
	})
	if !errors.Is(runErr, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", runErr)
	}
	if len(tr.calls) != 0 || len(fl.calls) != 0 {
		t.Fatal("no tool may be invoked when preflight fails")
	}
}

func TestRunPersistsHistory(t *testing.T) {
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	tr := &fakeTranscriber{}
	fl := &fakeFilter{}
	p := newTestPipeline(t, tr, fl, store)

	manifest := filepath.Join(t.TempDir(), "manifest.json")
	if err := p.Run(context.Background(), pipeline.Request{
		Model: "model.nemo", AudioDir: "/audio", Manifest: manifest,
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	listed, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 run record, got %d", len(listed))
	}
	if listed[0].Status != runs.StatusCompleted {
		t.Fatalf("unexpected status %q", listed[0].Status)
	}
	if listed[0].FilteredManifest != pipeline.FilteredManifestPath(manifest) {
		t.Fatalf("unexpected filtered manifest %q", listed[0].FilteredManifest)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	store, err := runs.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	tr := &fakeTranscriber{err: errors.New("model load failed")}
	p := newTestPipeline(t, tr, &fakeFilter{}, store)

	_ = p.Run(context.Background(), pipeline.Request{
		Model: "m", AudioDir: "/audio", Manifest: "/m.json",
	})

	listed, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Status != runs.StatusFailed {
		t.Fatalf("expected failed run record, got %+v", listed)
	}
	if listed[0].ErrorMessage == "" {
		t.Fatal("expected error message on failed run")
	}
}

func TestManifestDirectoryLock(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.json")

	blocked := make(chan struct{})
	release := make(chan struct{})
	tr := &fakeTranscriber{}
	slow := transcriberFunc(func(ctx context.Context, m, out string) error {
		close(blocked)
		<-release
		return nil
	})

	first, err := pipeline.New(pipeline.Options{Transcriber: slow, Filter: &fakeFilter{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	second, err := pipeline.New(pipeline.Options{Transcriber: tr, Filter: &fakeFilter{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	req := pipeline.Request{Model: "m", AudioDir: "/audio", Manifest: manifest}
	done := make(chan error, 1)
	go func() { done <- first.Run(context.Background(), req) }()

	<-blocked
	if err := second.Run(context.Background(), req); !errors.Is(err, services.ErrLocked) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

type transcriberFunc func(ctx context.Context, manifest, outputPath string) error

func (f transcriberFunc) Transcribe(ctx context.Context, manifest, outputPath string) error {
	return f(ctx, manifest, outputPath)
}
