package transcriber

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"asrsift/internal/services"
)

// ScriptName is the transcription tool entry point under the scripts directory.
const ScriptName = "transcribe_speech.py"

// Checkpoint suffix that selects model_path over pretrained_name.
const nemoSuffix = ".nemo"

const (
	defaultPython    = "python"
	defaultBatchSize = 4
)

// Config captures runtime settings for the transcription tool.
type Config struct {
	// Model is a pretrained model name, or a local checkpoint path ending
	// in .nemo.
	Model string
	// ScriptsDir is the directory containing ScriptName.
	ScriptsDir string
	// Python is the interpreter used to launch the tool.
	Python string
	// BatchSize is forwarded to the tool unchanged.
	BatchSize int
}

// Client invokes the transcription tool.
type Client struct {
	cfg           Config
	stdout        io.Writer
	stderr        io.Writer
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewClient constructs a transcription client, filling in defaults.
func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Python) == "" {
		cfg.Python = defaultPython
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Client{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// WithOutput redirects the tool's stdout and stderr.
func (c *Client) WithOutput(stdout, stderr io.Writer) {
	if stdout != nil {
		c.stdout = stdout
	}
	if stderr != nil {
		c.stderr = stderr
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// ModelArgument returns the tool argument name for the given model
// identifier: model_path for local .nemo checkpoints (case-insensitive
// suffix match), pretrained_name otherwise.
func ModelArgument(model string) string {
	if strings.HasSuffix(strings.ToLower(model), nemoSuffix) {
		return "model_path"
	}
	return "pretrained_name"
}

// BuildArgs constructs the python argument list for a transcription run.
// num_workers is forced to zero so the tool transcribes synchronously in a
// single process.
func (c *Client) BuildArgs(manifest, outputPath string) []string {
	return []string{
		filepath.Join(c.cfg.ScriptsDir, ScriptName),
		fmt.Sprintf("%s=%s", ModelArgument(c.cfg.Model), c.cfg.Model),
		"dataset_manifest=" + manifest,
		"output_filename=" + outputPath,
		fmt.Sprintf("batch_size=%d", c.cfg.BatchSize),
		"num_workers=0",
	}
}

// Transcribe runs the transcription tool over the manifest, writing the
// transcript-augmented manifest to outputPath. A non-zero exit is returned
// with the tool's exec.ExitError preserved in the chain so the caller can
// propagate the exit status.
func (c *Client) Transcribe(ctx context.Context, manifest, outputPath string) error {
	if strings.TrimSpace(c.cfg.Model) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "build args", "model identifier required", nil)
	}
	if strings.TrimSpace(manifest) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "build args", "manifest path required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "build args", "output path required", nil)
	}

	args := c.BuildArgs(manifest, outputPath)
	if err := c.run(ctx, c.cfg.Python, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "run transcription tool", "", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	return cmd.Run()
}
