package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

// Stats summarizes a batch run.
type Stats struct {
	Files           int           `json:"files" yaml:"files"`
	Failed          int           `json:"failed" yaml:"failed"`
	WithSymbols     int           `json:"with_symbols" yaml:"with_symbols"`
	Symbols         int           `json:"symbols" yaml:"symbols"`
	Undecoded       int           `json:"undecoded" yaml:"undecoded"`
	Duration        time.Duration `json:"duration_ns" yaml:"duration"`
	AveragePerImage time.Duration `json:"avg_per_image_ns" yaml:"avg_per_image"`
}

// Stats computes summary statistics.
func (r *Result) Stats() Stats {
	st := Stats{Files: len(r.Files), Duration: r.Duration}
	for _, f := range r.Files {
		if f.Err != nil || f.Result == nil {
			st.Failed++
			continue
		}
		decoded := len(f.Result.Decoded())
		if decoded > 0 {
			st.WithSymbols++
		}
		st.Symbols += decoded
		st.Undecoded += len(f.Result.Symbols) - decoded
	}
	if st.Files > 0 {
		st.AveragePerImage = r.Duration / time.Duration(st.Files)
	}
	return st
}

// FormatResults renders the results as text, json, yaml or csv.
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "yaml":
		return formatYAML(r)
	case "csv":
		return formatCSV(r)
	case "", "text":
		return formatText(r), nil
	}
	return "", fmt.Errorf("unknown output format %q", format)
}

// WriteResults writes formatted results to outputFile on fsys, or to w when
// outputFile is empty.
func (r *Result) WriteResults(w io.Writer, fsys afero.Fs, format, outputFile string) error {
	out, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile == "" {
		_, err = io.WriteString(w, out)
		return err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := afero.WriteFile(fsys, outputFile, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// PrintStats writes a human-readable summary to w.
func (r *Result) PrintStats(w io.Writer) {
	st := r.Stats()
	_, _ = fmt.Fprintf(w, "\nScan statistics:\n")
	_, _ = fmt.Fprintf(w, "  Files: %d (%d failed)\n", st.Files, st.Failed)
	_, _ = fmt.Fprintf(w, "  Files with symbols: %d\n", st.WithSymbols)
	_, _ = fmt.Fprintf(w, "  Symbols decoded: %d (%d undecodable)\n", st.Symbols, st.Undecoded)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v (avg %v per image)\n",
		st.Duration.Round(time.Millisecond), st.AveragePerImage.Round(time.Microsecond))
}

type document struct {
	Images []FileResult `json:"images" yaml:"images"`
	Stats  Stats        `json:"stats" yaml:"stats"`
}

func formatJSON(r *Result) (string, error) {
	b, err := json.MarshalIndent(document{Images: r.Files, Stats: r.Stats()}, "", "  ")
	return string(b), err
}

func formatYAML(r *Result) (string, error) {
	b, err := yaml.Marshal(document{Images: r.Files, Stats: r.Stats()})
	return string(b), err
}

func formatCSV(r *Result) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(append([]string{"file"}, scanner.CSVHeader()...)); err != nil {
		return "", err
	}
	for _, f := range r.Files {
		if f.Result == nil || len(f.Result.Symbols) == 0 {
			row := make([]string, len(scanner.CSVHeader())+1)
			row[0] = f.Path
			row[len(row)-1] = f.Error
			if err := w.Write(row); err != nil {
				return "", err
			}
			continue
		}
		for i, s := range f.Result.Symbols {
			if err := w.Write(append([]string{f.Path}, scanner.CSVRow(i, s)...)); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

func formatText(r *Result) string {
	var sb strings.Builder
	for i, f := range r.Files {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# %s\n", f.Path)
		if f.Result == nil {
			fmt.Fprintf(&sb, "error: %s\n", f.Error)
			continue
		}
		for _, v := range f.Result.Values() {
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
