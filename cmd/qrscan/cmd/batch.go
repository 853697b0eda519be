package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/batch"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Scan many images in parallel",
		Long: `Scan image files and directories in parallel and report every QR code
found. Directories are expanded using the include and exclude patterns.

Examples:
  qrscan batch *.png
  qrscan batch scans/ --recursive --workers 8
  qrscan batch scans/ --format json --output results.json
  qrscan batch scans/ --continue-on-error --stats`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	addScannerFlags(cmd)
	addOutputFlags(cmd, "text, json, yaml, csv")
	f := cmd.Flags()
	f.String("overlay-dir", "", "directory to save overlay images")
	f.IntP("workers", "w", 4, fmt.Sprintf("number of files scanned in parallel (CPUs: %d)", runtime.NumCPU()))
	f.BoolP("recursive", "r", false, "recursively scan directories")
	f.StringSlice("include", nil, "file patterns to include (default: all supported images)")
	f.StringSlice("exclude", nil, "file patterns to exclude")
	f.Bool("continue-on-error", false, "report unreadable files instead of aborting")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Bool("quiet", false, "suppress progress and statistics")
	f.Bool("stats", false, "print statistics after the results")
	f.Duration("progress-interval", 100*time.Millisecond, "progress update interval")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	config := a.cfg.ToBatchConfig()
	config.ShowProgress, _ = cmd.Flags().GetBool("progress")
	config.Quiet, _ = cmd.Flags().GetBool("quiet")
	config.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	showStats, _ := cmd.Flags().GetBool("stats")

	result, err := batch.ProcessBatch(cmd.Context(), args, config)
	if err != nil {
		return err
	}

	if err := result.WriteResults(cmd.OutOrStdout(), afero.NewOsFs(), config.Format, config.OutputFile); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if showStats && !config.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}
