package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/qrscan/internal/config"
	"github.com/MeKo-Tech/qrscan/internal/version"
)

// app is the state shared by one command tree: its viper instance, the
// loaded configuration and the filesystem used for config files.
type app struct {
	v       *viper.Viper
	fs      afero.Fs
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the qrscan command tree with its own configuration
// state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:   "qrscan",
		Short: "Detect and decode QR codes in images, PDFs and camera frames",
		Long: `qrscan finds QR codes in images, decodes them and reports their payload
and position. Images can be scanned one by one, in batches, from PDFs, from
a watched directory or through an HTTP and WebSocket API.

Examples:
  qrscan image ticket.png
  qrscan batch scans/ --recursive --format json
  qrscan pdf invoice.pdf --pages 1-2
  qrscan serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $XDG_CONFIG_HOME/qrscan, ~/.config/qrscan, /etc/qrscan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().Bool("version", false, "print version information and exit")

	root.AddCommand(
		newImageCommand(a),
		newBatchCommand(a),
		newPDFCommand(a),
		newWatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// load binds the running command's flags, reads the configuration and
// installs the JSON logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := bindFlags(a.v, cmd); err != nil {
		return err
	}

	loader := config.NewLoaderWithViper(a.v)
	cfg, err := loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if used := loader.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded configuration", "file", used)
	}
	return nil
}

func printVersion(w io.Writer) {
	v, commit, date := version.Info()
	_, _ = fmt.Fprintf(w, "qrscan version %s\n", v)
	_, _ = fmt.Fprintf(w, "Commit: %s\n", commit)
	_, _ = fmt.Fprintf(w, "Built: %s\n", date)
}
