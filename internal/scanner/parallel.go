package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig holds configuration for scanning many images at once.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
	// ErrorHandler receives every image that failed to scan. Failures passed
	// to it do not stop the run. Calls are serialized.
	ErrorHandler func(int, image.Image, error)
}

// DefaultParallelConfig returns defaults for parallel scanning.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// ScanImagesParallel scans images with at most MaxWorkers scans in flight.
// Results come back in input order with nil slots for failed images.
// Without an ErrorHandler the first failure cancels the remaining scans and
// is returned. Cancellation of ctx always aborts.
func (s *Scanner) ScanImagesParallel(ctx context.Context, images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	progress := config.ProgressCallback
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	progress.OnStart(len(images))
	defer progress.OnComplete()

	results := make([]*ImageResult, len(images))
	var (
		done      atomic.Int64
		handlerMu sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MaxWorkers)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Scan(gctx, img)
			n := int(done.Add(1))
			if err != nil {
				progress.OnError(n, err)
				progress.OnProgress(n, len(images))
				if config.ErrorHandler == nil || ctx.Err() != nil {
					return fmt.Errorf("image %d: %w", i, err)
				}
				handlerMu.Lock()
				config.ErrorHandler(i, img, err)
				handlerMu.Unlock()
				return nil
			}
			results[i] = res
			progress.OnProgress(n, len(images))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
