package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/common"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
	outputFormatCSV  = "csv"
)

// stdinPath selects standard input as the image source.
const stdinPath = "-"

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [files...]",
		Short: "Scan image files for QR codes",
		Long: `Scan one or more image files and print the decoded QR code contents.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP. Use "-" to read one
image from standard input.

Examples:
  qrscan image ticket.png
  qrscan image *.png --format json
  qrscan image photo.jpg --overlay-dir overlays/
  cat frame.png | qrscan image -`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImage(cmd, args)
		},
	}

	addScannerFlags(cmd)
	addOutputFlags(cmd, "text, json, yaml, csv")
	f := cmd.Flags()
	f.String("overlay-dir", "", "directory to save overlay images")
	f.String("box-color", "#0000FF", "overlay bounding box color (hex)")
	f.String("poly-color", "#00C800", "overlay outline color (hex)")
	f.Int("repeat", 0, "scan each image this many times and report timings")
	return cmd
}

func (a *app) runImage(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	format := cfg.Output.Format
	if !isFormat(format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(batch.Formats, ", "))
	}

	s, err := scanner.New(cfg.ToScannerConfig())
	if err != nil {
		return err
	}
	repeat, _ := cmd.Flags().GetInt("repeat")
	boxHex, _ := cmd.Flags().GetString("box-color")
	polyHex, _ := cmd.Flags().GetString("poly-color")
	boxColor, err := parseHexColor(boxHex)
	if err != nil {
		return err
	}
	polyColor, err := parseHexColor(polyHex)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	files := make([]batch.FileResult, 0, len(args))
	for _, path := range args {
		img, err := loadInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		if repeat > 0 {
			m := common.Measure(filepath.Base(path), repeat, func() error {
				_, err := s.Scan(ctx, img)
				return err
			})
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), m.String())
		}

		res, err := s.Scan(ctx, img)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		scanner.SortSymbolsTopLeft(res)
		slog.Debug("Scanned image", "file", path, "symbols", len(res.Symbols), "decoded", len(res.Decoded()))

		if dir := cfg.Output.OverlayDir; dir != "" {
			if err := saveOverlay(dir, path, scanner.RenderOverlay(img, res, boxColor, polyColor)); err != nil {
				return err
			}
		}
		files = append(files, batch.FileResult{Path: path, Result: res})
	}

	var out string
	if len(files) == 1 {
		out, err = formatImageResult(files[0].Result, format)
	} else {
		r := &batch.Result{Files: files, Duration: time.Since(start), WorkerCount: 1}
		out, err = r.FormatResults(format)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), afero.NewOsFs(), cfg.Output.File, out)
}

// formatImageResult renders a single image result.
func formatImageResult(res *scanner.ImageResult, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		return scanner.ToJSONImage(res)
	case outputFormatCSV:
		return scanner.ToCSVImage(res)
	case outputFormatYAML:
		b, err := yaml.Marshal(res)
		return string(b), err
	default:
		return scanner.ToPlainTextImage(res)
	}
}

func loadInput(stdin io.Reader, path string) (image.Image, error) {
	if path == stdinPath {
		img, _, err := utils.DecodeImage(stdin)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return img, nil
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func saveOverlay(dir, path string, img *image.RGBA) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create overlay dir: %w", err)
	}
	base := filepath.Base(path)
	if path == stdinPath {
		base = "stdin"
	}
	name := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
	f, err := os.Create(name) //nolint:gosec // user-chosen output directory
	if err != nil {
		return fmt.Errorf("failed to create overlay file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return f.Close()
}

// writeOutput writes out to file on fsys, or to w when file is empty.
func writeOutput(w io.Writer, fsys afero.Fs, file, out string) error {
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if file == "" {
		_, err := io.WriteString(w, out)
		return err
	}
	if err := afero.WriteFile(fsys, file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func isFormat(format string) bool {
	return slices.Contains(batch.Formats, format)
}

var errBadColor = errors.New("invalid color")

// parseHexColor parses "#RRGGBB" or "RRGGBB".
func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	var r, g, b uint8
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", errBadColor, s)
	}
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", errBadColor, s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
