package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to configuration keys. Only flags present
// on the running command are bound, so commands can reuse a name.
var flagKeys = map[string]string{
	"verbose":   "verbose",
	"log-level": "log_level",

	"max-grids":      "scanner.max_grids",
	"grouping-score": "scanner.grouping_score_max",
	"try-inverted":   "scanner.try_inverted",
	"try-mirrored":   "scanner.try_mirrored",
	"max-dimension":  "scanner.max_dimension",
	"scan-workers":   "scanner.workers",
	"debug-dir":      "scanner.debug_dir",

	"format":      "output.format",
	"output":      "output.file",
	"overlay-dir": "output.overlay_dir",

	"workers":           "batch.workers",
	"recursive":         "batch.recursive",
	"include":           "batch.include",
	"exclude":           "batch.exclude",
	"continue-on-error": "batch.continue_on_error",

	"host":                 "server.host",
	"port":                 "server.port",
	"cors-origin":          "server.cors_origin",
	"max-upload-size":      "server.max_upload_mb",
	"timeout":              "server.timeout_sec",
	"shutdown-timeout":     "server.shutdown_timeout",
	"metrics":              "server.metrics_enabled",
	"requests-per-minute":  "server.rate_limit.requests_per_minute",
	"requests-per-hour":    "server.rate_limit.requests_per_hour",
	"max-requests-per-day": "server.rate_limit.max_requests_per_day",
	"max-data-per-day":     "server.rate_limit.max_data_per_day",
}

// bindFlags binds the flags of cmd that have a configuration key.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// addScannerFlags registers the detector and retry flags shared by every
// scanning command. Defaults only document the built-in values; unset flags
// leave the configuration untouched.
func addScannerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("max-grids", 8, "maximum number of candidate symbols per image")
	f.Float64("grouping-score", 2.5, "maximum finder pattern grouping score")
	f.Bool("try-inverted", true, "retry on the negative image when nothing is found")
	f.Bool("try-mirrored", true, "retry decoding with the grid transposed")
	f.Int("max-dimension", 0, "downscale images larger than this many pixels per side (0 = never)")
	f.Int("scan-workers", 0, "concurrent symbol decoders per image (0 = number of CPUs)")
	f.String("debug-dir", "", "write overlays and rectified symbols for every scan to this directory")
}

func addOutputFlags(cmd *cobra.Command, formats string) {
	f := cmd.Flags()
	f.StringP("format", "f", "text", "output format: "+formats)
	f.StringP("output", "o", "", "output file (default: stdout)")
}
