package metricsfilter

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"asrsift/internal/services"
)

// ScriptName is the filtering tool entry point under the scripts directory.
const ScriptName = "get_metrics_and_filter.py"

const defaultPython = "python"

// Thresholds carries the metric limits forwarded to the tool. Records
// exceeding any limit are dropped from the filtered manifest.
type Thresholds struct {
	MaxCER          float64
	MaxWER          float64
	MaxEdgeCER      float64
	MaxLenDiffRatio float64
}

// Config captures runtime settings for the filtering tool.
type Config struct {
	ScriptsDir string
	Python     string
	Thresholds Thresholds
}

// Client invokes the metrics-and-filter tool.
type Client struct {
	cfg           Config
	stdout        io.Writer
	stderr        io.Writer
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewClient constructs a filtering client, filling in defaults.
func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Python) == "" {
		cfg.Python = defaultPython
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

// Thresholds returns the configured metric limits.
func (c *Client) Thresholds() Thresholds {
	return c.cfg.Thresholds
}

// BuildArgs constructs the python argument list for a filtering run over the
// transcript-augmented manifest.
func (c *Client) BuildArgs(manifest, audioDir string) []string {
	t := c.cfg.Thresholds
	return []string{
		filepath.Join(c.cfg.ScriptsDir, ScriptName),
		"--manifest=" + manifest,
		"--audio_dir=" + audioDir,
		"--max_cer=" + formatThreshold(t.MaxCER),
		"--max_wer=" + formatThreshold(t.MaxWER),
		"--max_len_diff_ratio=" + formatThreshold(t.MaxLenDiffRatio),
		"--max_edge_cer=" + formatThreshold(t.MaxEdgeCER),
	}
}

// Filter runs the metrics-and-filter tool. The tool's own output (metrics,
// filtered manifest path) is the externally visible result of the pipeline.
func (c *Client) Filter(ctx context.Context, manifest, audioDir string) error {
	if strings.TrimSpace(manifest) == "" {
		return services.Wrap(services.ErrValidation, "filter", "build args", "manifest path required", nil)
	}
	if strings.TrimSpace(audioDir) == "" {
		return services.Wrap(services.ErrValidation, "filter", "build args", "audio directory required", nil)
	}

	args := c.BuildArgs(manifest, audioDir)
	if err := c.run(ctx, c.cfg.Python, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "filter", "run filtering tool", "", err)
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

// formatThreshold renders integral values without a decimal point and
// fractional values as-is.
func formatThreshold(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
