package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"asrsift/internal/logging"
	"asrsift/internal/runs"
	"asrsift/internal/services"
)

// Transcriber runs the external transcription tool over a manifest, writing
// the transcript-augmented manifest to outputPath.
type Transcriber interface {
	Transcribe(ctx context.Context, manifest, outputPath string) error
}

// MetricsFilter runs the external metrics-and-filter tool over a
// transcript-augmented manifest.
type MetricsFilter interface {
	Filter(ctx context.Context, manifest, audioDir string) error
}

// Preflight verifies external dependencies before any tool is invoked.
type Preflight func() error

// Request carries the per-invocation inputs of a pipeline run.
type Request struct {
	Model    string
	AudioDir string
	Manifest string
}

// Options assembles a Pipeline.
type Options struct {
	Logger      *slog.Logger
	Transcriber Transcriber
	Filter      MetricsFilter
	Store       *runs.Store
	Preflight   Preflight
	// LockDisabled skips the manifest-directory lock (tests).
	LockDisabled bool
}

// Pipeline executes the two stages sequentially.
type Pipeline struct {
	logger       *slog.Logger
	transcriber  Transcriber
	filter       MetricsFilter
	store        *runs.Store
	preflight    Preflight
	lockDisabled bool
}

// New constructs a Pipeline. Logger and Store may be nil (no-op logging, no
// persisted history); Transcriber and Filter are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if opts.Filter == nil {
		return nil, fmt.Errorf("metrics filter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		logger:       logger,
		transcriber:  opts.Transcriber,
		filter:       opts.Filter,
		store:        opts.Store,
		preflight:    opts.Preflight,
		lockDisabled: opts.LockDisabled,
	}, nil
}

// Validate checks the required parameters: model, audio directory, and
// manifest must all be non-empty before any tool is invoked.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Model) == "" {
		missing = append(missing, "MODEL_NAME_OR_PATH")
	}
	if strings.TrimSpace(r.AudioDir) == "" {
		missing = append(missing, "INPUT_AUDIO_DIR")
	}
	if strings.TrimSpace(r.Manifest) == "" {
		missing = append(missing, "MANIFEST")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "validate",
			"missing required parameters: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Run executes transcription then filtering. The first failing step aborts
// the run; its error carries the tool's exit status for propagation.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	filtered := FilteredManifestPath(req.Manifest)
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	if !p.lockDisabled {
		lock := flock.New(filepath.Join(filepath.Dir(req.Manifest), lockFileName))
		locked, err := lock.TryLock()
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock", "", err)
		}
		if !locked {
			return services.Wrap(services.ErrLocked, "pipeline", "acquire lock",
				"another run is already processing this manifest directory", nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	if p.preflight != nil {
		if err := p.preflight(); err != nil {
			return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", "", err)
		}
	}

	record := &runs.Run{
		ID:               runID,
		Model:            req.Model,
		Manifest:         req.Manifest,
		FilteredManifest: filtered,
		AudioDir:         req.AudioDir,
		Status:           runs.StatusTranscribing,
	}
	p.persist(ctx, logger, record, p.createRecord)

	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("model", req.Model),
		logging.String("manifest", req.Manifest),
		logging.String("audio_dir", req.AudioDir),
		logging.String("filtered_manifest", filtered),
	)

	if err := p.runStage(ctx, "transcribe", func(stageCtx context.Context) error {
		return p.transcriber.Transcribe(stageCtx, req.Manifest, filtered)
	}); err != nil {
		return p.fail(ctx, logger, record, err)
	}

	record.Status = runs.StatusFiltering
	p.persist(ctx, logger, record, p.updateRecord)

	if err := p.runStage(ctx, "filter", func(stageCtx context.Context) error {
		return p.filter.Filter(stageCtx, filtered, req.AudioDir)
	}); err != nil {
		return p.fail(ctx, logger, record, err)
	}

	record.Status = runs.StatusCompleted
	p.persist(ctx, logger, record, p.updateRecord)

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("filtered_manifest", filtered),
	)
	return nil
}

const lockFileName = ".asrsift.lock"

func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, stage)
	stageLogger := logging.WithContext(stageCtx, p.logger)

	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(stageCtx); err != nil {
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Int("exit_code", services.ExitCode(err)),
			logging.Error(err),
		)
		return err
	}
	stageLogger.Info("stage completed", logging.String(logging.FieldEventType, "stage_complete"))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, record *runs.Run, err error) error {
	record.SetFailed(strings.TrimSpace(err.Error()), services.ExitCode(err))
	p.persist(ctx, logger, record, p.updateRecord)
	return err
}

type persistFn func(context.Context, *runs.Run) error

func (p *Pipeline) createRecord(ctx context.Context, record *runs.Run) error {
	return p.store.Create(ctx, record)
}

func (p *Pipeline) updateRecord(ctx context.Context, record *runs.Run) error {
	return p.store.Update(ctx, record)
}

// persist is best-effort: run history must never mask a pipeline result.
func (p *Pipeline) persist(ctx context.Context, logger *slog.Logger, record *runs.Run, fn persistFn) {
	if p.store == nil {
		return
	}
	if err := fn(ctx, record); err != nil {
		logger.Warn("failed to persist run record", logging.Error(err))
	}
}
