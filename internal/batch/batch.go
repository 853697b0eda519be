// Package batch scans many image files: discovery on an afero filesystem,
// a bounded worker pool, optional overlays and result formatting.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// ErrNoImages is returned when discovery finds nothing to scan.
var ErrNoImages = errors.New("no image files found")

// FileResult is the outcome for one file. Exactly one of Result and Err is
// set.
type FileResult struct {
	Path   string               `json:"file" yaml:"file"`
	Result *scanner.ImageResult `json:"result,omitempty" yaml:"result,omitempty"`
	Err    error                `json:"-" yaml:"-"`
	Error  string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result holds the outcome of a batch run in discovery order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// ProcessBatch discovers images under paths and scans them.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	fsys := config.fs()

	files, err := discoverImageFiles(fsys, paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	s, err := scanner.New(config.Scanner)
	if err != nil {
		return nil, err
	}

	progress := scanner.MultiProgressCallback{
		scanner.NewLogProgressCallback(nil, slog.LevelDebug).WithInterval(max(len(files)/10, 1)),
	}
	if config.ShowProgress && !config.Quiet {
		progress = append(progress,
			scanner.NewConsoleProgressCallback(os.Stderr, "Scanning: ").WithInterval(config.ProgressInterval))
	}

	start := time.Now()
	out := make([]FileResult, len(files))
	var done atomic.Int64

	progress.OnStart(len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for i, path := range files {
		g.Go(func() error {
			res, err := scanFile(gctx, s, fsys, path, config.OverlayDir)
			out[i] = FileResult{Path: path, Result: res, Err: err}
			n := int(done.Add(1))
			if err != nil {
				out[i].Error = err.Error()
				progress.OnError(n, err)
				slog.Debug("Batch file failed", "file", path, "error", err)
				if !config.ContinueOnError {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			progress.OnProgress(n, len(files))
			return nil
		})
	}
	err = g.Wait()
	progress.OnComplete()
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{Files: out, Duration: time.Since(start), WorkerCount: config.Workers}, nil
}

// scanFile loads one image and scans it, writing an overlay when overlayDir
// is set.
func scanFile(ctx context.Context, s *scanner.Scanner, fsys afero.Fs, path, overlayDir string) (*scanner.ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := utils.LoadImageFS(fsys, path)
	if err != nil {
		return nil, err
	}
	res, err := s.Scan(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	scanner.SortSymbolsTopLeft(res)

	if overlayDir != "" {
		overlay := scanner.RenderOverlay(img, res, color.RGBA{B: 255, A: 255}, color.RGBA{G: 200, A: 255})
		if err := writeOverlay(fsys, overlayDir, path, overlay); err != nil {
			slog.Warn("Failed to write overlay", "file", path, "error", err)
		}
	}
	return res, nil
}

func writeOverlay(fsys afero.Fs, dir, path string, img *image.RGBA) error {
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	base := filepath.Base(path)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
	f, err := fsys.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
