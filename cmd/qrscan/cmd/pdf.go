package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/pdf"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [files...]",
		Short: "Scan the images embedded in PDF files",
		Long: `Extract the images embedded in PDF files and scan them for QR codes.
Vector-drawn codes are not rasterized; only embedded images are scanned.

Examples:
  qrscan pdf invoice.pdf
  qrscan pdf report.pdf --pages 1-3,7 --format json
  qrscan pdf locked.pdf --password secret`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPDF(cmd, args)
		},
	}

	addScannerFlags(cmd)
	addOutputFlags(cmd, "text, json, yaml")
	f := cmd.Flags()
	f.String("pages", "", "page range, e.g. 1-3,5 (default: all pages)")
	f.StringP("password", "p", "", "user password for encrypted PDFs")
	f.String("owner-password", "", "owner password for encrypted PDFs")
	return cmd
}

func (a *app) runPDF(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	format := cfg.Output.Format
	if format == outputFormatCSV || !isFormat(format) {
		return fmt.Errorf("invalid output format for pdf: %s (must be one of: text, json, yaml)", format)
	}
	pages, _ := cmd.Flags().GetString("pages")
	if _, err := pdf.ParsePageRange(pages); err != nil {
		return fmt.Errorf("invalid page range: %w", err)
	}

	s, err := scanner.New(cfg.ToScannerConfig())
	if err != nil {
		return err
	}
	pcfg := pdf.DefaultProcessorConfig()
	pcfg.MaxWorkers = cfg.Batch.Workers
	user, _ := cmd.Flags().GetString("password")
	owner, _ := cmd.Flags().GetString("owner-password")
	if user != "" || owner != "" {
		pcfg.Credentials = &pdf.PasswordCredentials{UserPassword: user, OwnerPassword: owner}
	}

	docs, err := pdf.NewProcessor(s, pcfg).ProcessFiles(cmd.Context(), args, pages)
	if err != nil {
		if pdf.IsPasswordError(err) {
			return fmt.Errorf("%w (use --password)", err)
		}
		return err
	}

	out, err := formatDocuments(docs, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), afero.NewOsFs(), cfg.Output.File, out)
}

func formatDocuments(docs []*pdf.DocumentResult, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		var b []byte
		var err error
		if len(docs) == 1 {
			b, err = json.MarshalIndent(docs[0], "", "  ")
		} else {
			b, err = json.MarshalIndent(docs, "", "  ")
		}
		return string(b), err
	case outputFormatYAML:
		b, err := yaml.Marshal(docs)
		return string(b), err
	default:
		parts := make([]string, len(docs))
		for i, d := range docs {
			parts[i] = d.ToPlainText()
		}
		return strings.Join(parts, "\n"), nil
	}
}
