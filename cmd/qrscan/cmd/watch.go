package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directories...]",
		Short: "Scan images as they are added to directories",
		Long: `Watch directories and scan every image that is created or modified.
One line is printed per scanned file until the command is interrupted.

Examples:
  qrscan watch inbox/
  qrscan watch scans/ --recursive --format json`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args)
		},
	}

	addScannerFlags(cmd)
	f := cmd.Flags()
	f.StringP("format", "f", "text", "output format: text or json (one object per line)")
	f.BoolP("recursive", "r", false, "watch subdirectories too")
	f.StringSlice("include", nil, "file patterns to include (default: all supported images)")
	f.StringSlice("exclude", nil, "file patterns to exclude")
	f.Duration("debounce", watch.DefaultDebounce, "quiet period before a changed file is scanned")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	format := cfg.Output.Format
	if format != outputFormatText && format != outputFormatJSON {
		return fmt.Errorf("invalid output format for watch: %s (must be text or json)", format)
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")

	s, err := scanner.New(cfg.ToScannerConfig())
	if err != nil {
		return err
	}
	w, err := watch.New(s, watch.Config{
		Dirs:      args,
		Recursive: cfg.Batch.Recursive,
		Include:   cfg.Batch.Include,
		Exclude:   cfg.Batch.Exclude,
		Debounce:  debounce,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	return w.Run(ctx, func(ev watch.Event) {
		if err := writeWatchEvent(out, ev, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed to write result: %v\n", err)
		}
	})
}

func writeWatchEvent(w io.Writer, ev watch.Event, format string) error {
	if format == outputFormatJSON {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	stamp := ev.Time.Format(time.TimeOnly)
	if ev.Err != nil {
		_, err := fmt.Fprintf(w, "%s %s: error: %s\n", stamp, ev.Path, ev.Error)
		return err
	}
	values := ev.Result.Values()
	if len(values) == 0 {
		_, err := fmt.Fprintf(w, "%s %s: no symbols\n", stamp, ev.Path)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s: %s\n", stamp, ev.Path, strings.Join(values, " | "))
	return err
}
