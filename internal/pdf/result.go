package pdf

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

// ImageResult holds the symbols found in one embedded image.
type ImageResult struct {
	ImageIndex int              `json:"image_index" yaml:"image_index"`
	Width      int              `json:"width" yaml:"width"`
	Height     int              `json:"height" yaml:"height"`
	Symbols    []scanner.Result `json:"symbols" yaml:"symbols"`
	Inverted   bool             `json:"inverted,omitempty" yaml:"inverted,omitempty"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// PageResult holds the results for a single PDF page.
type PageResult struct {
	PageNumber int           `json:"page_number" yaml:"page_number"`
	Images     []ImageResult `json:"images" yaml:"images"`
}

// DocumentResult holds the results for a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename" yaml:"filename"`
	TotalPages int            `json:"total_pages" yaml:"total_pages"`
	Pages      []PageResult   `json:"pages" yaml:"pages"`
	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms" yaml:"extraction_time_ms"`
	ScanTimeMs       int64 `json:"scan_time_ms" yaml:"scan_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms" yaml:"total_time_ms"`
}

// Values returns every decoded text in page order.
func (d *DocumentResult) Values() []string {
	var out []string
	for _, p := range d.Pages {
		for _, img := range p.Images {
			for _, s := range img.Symbols {
				if s.OK() {
					out = append(out, s.RawValue)
				}
			}
		}
	}
	return out
}

// SymbolCount returns the number of decoded symbols.
func (d *DocumentResult) SymbolCount() int {
	return len(d.Values())
}

// ToPlainText renders a human-readable summary.
func (d *DocumentResult) ToPlainText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", d.Filename)
	fmt.Fprintf(&sb, "Total Pages: %d\n", d.TotalPages)
	for _, p := range d.Pages {
		fmt.Fprintf(&sb, "\nPage %d:\n", p.PageNumber)
		for _, img := range p.Images {
			fmt.Fprintf(&sb, "  Image %d (%dx%d): %d symbol(s)\n", img.ImageIndex, img.Width, img.Height, len(img.Symbols))
			if img.Error != "" {
				fmt.Fprintf(&sb, "    error: %s\n", img.Error)
			}
			for i, s := range img.Symbols {
				if !s.OK() {
					fmt.Fprintf(&sb, "    #%d undecodable: %s\n", i+1, s.Error)
					continue
				}
				fmt.Fprintf(&sb, "    #%d %s\n", i+1, s.RawValue)
			}
		}
	}
	return sb.String()
}
