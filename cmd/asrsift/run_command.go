package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asrsift/internal/config"
	"asrsift/internal/deps"
	"asrsift/internal/logging"
	"asrsift/internal/pipeline"
	"asrsift/internal/runs"
	"asrsift/internal/services/metricsfilter"
	"asrsift/internal/services/transcriber"
)

// Flag names match the parameter names the tool scripts document.
const (
	flagModel           = "MODEL_NAME_OR_PATH"
	flagAudioDir        = "INPUT_AUDIO_DIR"
	flagManifest        = "MANIFEST"
	flagScriptsDir      = "SCRIPTS_DIR"
	flagBatchSize       = "BATCH_SIZE"
	flagNumJobs         = "NUM_JOBS"
	flagMaxCER          = "CER_THRESHOLD"
	flagMaxWER          = "WER_THRESHOLD"
	flagMaxEdgeCER      = "CER_EDGE_THRESHOLD"
	flagMaxLenDiffRatio = "LEN_DIFF_RATIO_THRESHOLD"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var model, audioDir, manifest, scriptsDir string
	var batchSize, numJobs int
	var maxCER, maxWER, maxEdgeCER, maxLenDiffRatio float64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transcribe-then-filter pipeline over a dataset manifest",
		Long: `Run invokes the transcription tool over the input manifest, writing a
transcript-augmented manifest next to it, then invokes the metrics-and-filter
tool which drops records exceeding the CER/WER/edge-CER/length-ratio
thresholds and prints the computed metrics.

Flags override the corresponding configuration file values for one
invocation. MODEL_NAME_OR_PATH, INPUT_AUDIO_DIR, and MANIFEST are required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			flags := cmd.Flags()
			if !flags.Changed(flagModel) {
				model = cfg.Transcription.Model
			}
			if !flags.Changed(flagScriptsDir) {
				scriptsDir = cfg.Paths.ScriptsDir
			}
			if !flags.Changed(flagBatchSize) {
				batchSize = cfg.Transcription.BatchSize
			}
			if !flags.Changed(flagNumJobs) {
				numJobs = cfg.Transcription.NumJobs
			}
			if !flags.Changed(flagMaxCER) {
				maxCER = cfg.Filter.MaxCER
			}
			if !flags.Changed(flagMaxWER) {
				maxWER = cfg.Filter.MaxWER
			}
			if !flags.Changed(flagMaxEdgeCER) {
				maxEdgeCER = cfg.Filter.MaxEdgeCER
			}
			if !flags.Changed(flagMaxLenDiffRatio) {
				maxLenDiffRatio = cfg.Filter.MaxLenDiffRatio
			}

			req := pipeline.Request{Model: model, AudioDir: audioDir, Manifest: manifest}
			if err := req.Validate(); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
				return err
			}

			manifestPath, err := config.ExpandPath(manifest)
			if err != nil {
				return fmt.Errorf("resolve manifest path: %w", err)
			}
			req.Manifest = manifestPath

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			logger.Info("resolved pipeline settings",
				logging.String("model", model),
				logging.String("scripts_dir", scriptsDir),
				logging.Int("batch_size", batchSize),
				logging.Int("num_jobs", numJobs),
				logging.Float64("max_cer", maxCER),
				logging.Float64("max_wer", maxWER),
				logging.Float64("max_edge_cer", maxEdgeCER),
				logging.Float64("max_len_diff_ratio", maxLenDiffRatio),
			)

			python := cfg.PythonBinary()
			transcribeClient := transcriber.NewClient(transcriber.Config{
				Model:      model,
				ScriptsDir: scriptsDir,
				Python:     python,
				BatchSize:  batchSize,
			})
			filterClient := metricsfilter.NewClient(metricsfilter.Config{
				ScriptsDir: scriptsDir,
				Python:     python,
				Thresholds: metricsfilter.Thresholds{
					MaxCER:          maxCER,
					MaxWER:          maxWER,
					MaxEdgeCER:      maxEdgeCER,
					MaxLenDiffRatio: maxLenDiffRatio,
				},
			})

			store, err := runs.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			preflight := func() error {
				statuses := deps.Check(deps.PipelineRequirements(
					python, scriptsDir, transcriber.ScriptName, metricsfilter.ScriptName))
				return deps.Missing(statuses)
			}

			p, err := pipeline.New(pipeline.Options{
				Logger:      logger,
				Transcriber: transcribeClient,
				Filter:      filterClient,
				Store:       store,
				Preflight:   preflight,
			})
			if err != nil {
				return err
			}

			if err := p.Run(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered manifest written to %s\n",
				pipeline.FilteredManifestPath(req.Manifest))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&model, flagModel, "", "Pretrained model name, or a checkpoint path ending in .nemo")
	flags.StringVar(&audioDir, flagAudioDir, "", "Directory containing the source audio files")
	flags.StringVar(&manifest, flagManifest, "", "Dataset manifest to transcribe and filter")
	flags.StringVar(&scriptsDir, flagScriptsDir, "scripts", "Directory containing the tool scripts")
	flags.IntVar(&batchSize, flagBatchSize, 4, "Transcription batch size")
	flags.IntVar(&numJobs, flagNumJobs, -2, "Job concurrency hint (-2 means all CPUs but one)")
	flags.Float64Var(&maxCER, flagMaxCER, 30, "Maximum character error rate")
	flags.Float64Var(&maxWER, flagMaxWER, 75, "Maximum word error rate")
	flags.Float64Var(&maxEdgeCER, flagMaxEdgeCER, 60, "Maximum character error rate at clip edges")
	flags.Float64Var(&maxLenDiffRatio, flagMaxLenDiffRatio, 0.3, "Maximum relative transcript length difference")

	return cmd
}
