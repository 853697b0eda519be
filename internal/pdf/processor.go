package pdf

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/qrscan/internal/common"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

// ProcessorConfig contains configuration for PDF scanning.
type ProcessorConfig struct {
	// Credentials for encrypted files; nil fails on encrypted input.
	Credentials *PasswordCredentials
	// MaxWorkers bounds how many images are scanned at once (0 = NumCPU).
	MaxWorkers int
	// Progress receives per-image events; nil logs progress at debug level.
	Progress scanner.ProgressCallback
}

func (c *ProcessorConfig) progress() scanner.ProgressCallback {
	if c.Progress != nil {
		return c.Progress
	}
	return scanner.NewLogProgressCallback(nil, slog.LevelDebug)
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{}
}

// Processor scans the images embedded in PDF files.
type Processor struct {
	scanner *scanner.Scanner
	config  *ProcessorConfig
}

// NewProcessor creates a processor around s. A nil config uses the defaults.
func NewProcessor(s *scanner.Scanner, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	return &Processor{scanner: s, config: config}
}

// ProcessFile extracts the images on the selected pages and scans them.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string) (*DocumentResult, error) {
	total := common.NewNamedTimer("pdf")

	path, cleanup, err := Decrypt(filename, p.config.Credentials)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	extract := common.NewNamedTimer("extraction")
	pages, err := extractImages(path, pageRange, p.config.Credentials.configuration())
	if err != nil {
		return nil, err
	}
	extract.Stop()

	doc, err := p.ProcessPages(ctx, filename, pages)
	if err != nil {
		return nil, err
	}
	if n, err := PageCount(path); err == nil {
		doc.TotalPages = n
	}
	doc.Processing.ExtractionTimeMs = extract.Duration().Milliseconds()
	doc.Processing.TotalTimeMs = total.Stop().Milliseconds()

	slog.Debug("PDF scanned", "file", filename, "pages", len(doc.Pages),
		"symbols", doc.SymbolCount(), extract.Attr(), total.Attr())
	return doc, nil
}

// ProcessFiles scans several files in order, stopping at the first error.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	out := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		doc, err := p.ProcessFile(ctx, f, pageRange)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// ProcessPages scans already extracted page images. Scan failures of single
// images are recorded in their ImageResult; only cancellation aborts.
func (p *Processor) ProcessPages(ctx context.Context, filename string, pages map[int][]image.Image) (*DocumentResult, error) {
	timer := common.NewNamedTimer("scan")

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	doc := &DocumentResult{Filename: filename, Pages: make([]PageResult, len(numbers))}
	if len(numbers) > 0 {
		doc.TotalPages = numbers[len(numbers)-1]
	}

	var (
		images []image.Image
		slots  []*ImageResult
	)
	for i, n := range numbers {
		imgs := pages[n]
		doc.Pages[i] = PageResult{PageNumber: n, Images: make([]ImageResult, len(imgs))}
		for j, img := range imgs {
			slot := &doc.Pages[i].Images[j]
			slot.ImageIndex = j
			if img != nil {
				b := img.Bounds()
				slot.Width, slot.Height = b.Dx(), b.Dy()
			}
			images = append(images, img)
			slots = append(slots, slot)
		}
	}

	if len(images) > 0 {
		results, err := p.scanner.ScanImagesParallel(ctx, images, scanner.ParallelConfig{
			MaxWorkers:       p.config.MaxWorkers,
			ProgressCallback: p.config.progress(),
			ErrorHandler: func(i int, _ image.Image, err error) {
				slots[i].Error = err.Error()
			},
		})
		if err != nil {
			return nil, err
		}
		for i, res := range results {
			if res == nil {
				continue
			}
			scanner.SortSymbolsTopLeft(res)
			slots[i].Symbols = res.Symbols
			slots[i].Inverted = res.Inverted
		}
	}

	doc.Processing.ScanTimeMs = timer.Stop().Milliseconds()
	doc.Processing.TotalTimeMs = doc.Processing.ScanTimeMs
	return doc, nil
}
