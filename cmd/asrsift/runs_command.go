package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"asrsift/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			store, err := runs.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			listed, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeRunsJSON(out, listed)
			}

			if len(listed) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			headers := []string{"STARTED", "STATUS", "MODEL", "MANIFEST", "EXIT"}
			rows := make([][]string, 0, len(listed))
			for _, run := range listed {
				rows = append(rows, []string{
					run.CreatedAt.Local().Format(time.DateTime),
					string(run.Status),
					run.Model,
					run.Manifest,
					fmt.Sprintf("%d", run.ExitCode),
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit run history as JSON")

	cmd.AddCommand(newRunsShowCommand(ctx))

	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a single recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			store, err := runs.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:                %s\n", run.ID)
			fmt.Fprintf(out, "Status:            %s\n", run.Status)
			fmt.Fprintf(out, "Model:             %s\n", run.Model)
			fmt.Fprintf(out, "Manifest:          %s\n", run.Manifest)
			fmt.Fprintf(out, "Filtered manifest: %s\n", run.FilteredManifest)
			fmt.Fprintf(out, "Audio dir:         %s\n", run.AudioDir)
			fmt.Fprintf(out, "Started:           %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Updated:           %s\n", run.UpdatedAt.Local().Format(time.DateTime))
			if run.Status == runs.StatusFailed {
				fmt.Fprintf(out, "Exit code:         %d\n", run.ExitCode)
				fmt.Fprintf(out, "Error:             %s\n", run.ErrorMessage)
			}
			return nil
		},
	}
}

type runView struct {
	ID               string `json:"id"`
	Model            string `json:"model"`
	Manifest         string `json:"manifest"`
	FilteredManifest string `json:"filtered_manifest"`
	AudioDir         string `json:"audio_dir"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"error_message,omitempty"`
	ExitCode         int    `json:"exit_code"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func writeRunsJSON(out io.Writer, listed []*runs.Run) error {
	views := make([]runView, 0, len(listed))
	for _, run := range listed {
		views = append(views, runView{
			ID:               run.ID,
			Model:            run.Model,
			Manifest:         run.Manifest,
			FilteredManifest: run.FilteredManifest,
			AudioDir:         run.AudioDir,
			Status:           string(run.Status),
			ErrorMessage:     run.ErrorMessage,
			ExitCode:         run.ExitCode,
			CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:        run.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}
