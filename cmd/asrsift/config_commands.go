package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"asrsift/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the configuration file",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write an annotated starter config",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}

			if !overwrite {
				if _, statErr := os.Stat(target); statErr == nil {
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				} else if !errors.Is(statErr, fs.ErrNotExist) {
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write starter config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starter configuration written to %s\n", target)
			fmt.Fprintln(out, "Fill in transcription.model, or override it per run with --MODEL_NAME_OR_PATH.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the config (defaults to the standard location)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")
	return cmd
}

// resolveInitTarget expands the requested path, falling back to the default
// config location, and makes sure its parent directory exists.
func resolveInitTarget(requested string) (string, error) {
	target := strings.TrimSpace(requested)
	var err error
	if target == "" {
		target, err = config.DefaultConfigPath()
	} else {
		target, err = config.ExpandPath(target)
	}
	if err != nil {
		return "", fmt.Errorf("resolve config destination: %w", err)
	}
	if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
		return "", fmt.Errorf("create config directory: %w", mkErr)
	}
	return target, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check that the configuration loads cleanly",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare log and state directories: %w", err)
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Loaded %s\n", path)
			} else {
				fmt.Fprintf(out, "No config file at %s; built-in defaults apply\n", path)
			}
			fmt.Fprintf(out, "Scripts dir: %s\n", cfg.Paths.ScriptsDir)
			fmt.Fprintf(out, "Run history: %s\n", cfg.DatabasePath())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
