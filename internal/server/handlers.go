package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/pdf"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: versionString(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// scanImageHandler scans an uploaded image (multipart field "image").
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	file, _, ok := s.formFile(w, r, "image")
	if !ok {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		return
	}
	defer func() { _ = file.Close() }()

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, r, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.scanner.Scan(ctx, img)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, r, fmt.Sprintf("Scan failed: %v", err), statusForScanError(err))
		return
	}
	scanDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	observeSymbols("image", res.Symbols)
	scanner.SortSymbolsTopLeft(res)

	s.writeImageResponse(w, r, img, res)
}

func (s *Server) writeImageResponse(w http.ResponseWriter, r *http.Request, img image.Image, res *scanner.ImageResult) {
	switch requestFormat(r) {
	case formatText:
		out, _ := scanner.ToPlainTextImage(res)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, out+"\n")
	case formatCSV:
		out, err := scanner.ToCSVImage(res)
		if err != nil {
			s.writeErrorResponse(w, r, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, out)
	case formatOverlay:
		boxCol := parseHexColor(r.FormValue("box"), color.RGBA{R: 255, A: 255})
		polyCol := parseHexColor(r.FormValue("poly"), color.RGBA{G: 255, A: 255})
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, scanner.RenderOverlay(img, res, boxCol, polyCol)); err != nil {
			slog.Error("Failed to encode overlay", "error", err)
		}
	default:
		writeJSON(w, http.StatusOK, ScanResponse{Success: true, RequestID: requestID(r), Result: res})
	}
}

// scanPDFHandler scans the images embedded in an uploaded PDF (multipart
// field "pdf", optional "pages" range).
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	file, _, ok := s.formFile(w, r, "pdf")
	if !ok {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return
	}
	defer func() { _ = file.Close() }()

	pages := r.FormValue("pages")
	if _, err := pdf.ParsePageRange(pages); err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, r, fmt.Sprintf("Invalid page range: %v", err), http.StatusBadRequest)
		return
	}

	// pdfcpu works on files.
	tmp, err := os.CreateTemp("", "qrscan-upload-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, r, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.writeErrorResponse(w, r, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.pdf.ProcessFile(ctx, tmp.Name(), pages)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		status := statusForScanError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusUnprocessableEntity
		}
		s.writeErrorResponse(w, r, fmt.Sprintf("PDF processing failed: %v", err), status)
		return
	}
	scanDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())
	scanRequestsTotal.WithLabelValues("pdf", "success").Inc()
	for _, p := range doc.Pages {
		for _, img := range p.Images {
			observeSymbols("pdf", img.Symbols)
		}
	}

	if requestFormat(r) == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, doc.ToPlainText())
		return
	}
	writeJSON(w, http.StatusOK, PDFResponse{Success: true, RequestID: requestID(r), Result: doc})
}

// formFile parses the multipart body within the upload limit and returns
// the named file. On failure the error response is already written.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, r, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, r, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, r, fmt.Sprintf("No %s file provided", field), http.StatusBadRequest)
		return nil, nil, false
	}
	uploadSizeBytes.Observe(float64(header.Size))
	return file, header, true
}

// requestFormat reads "format" from the form or the query, default json.
func requestFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == "" {
		return formatJSON
	}
	return format
}

func statusForScanError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scanner.ErrNilImage):
		return http.StatusBadRequest
	case pdf.IsPasswordError(err):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// parseHexColor parses "#RRGGBB" or "RRGGBB", returning def otherwise.
func parseHexColor(s string, def color.Color) color.Color {
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	writeJSON(w, statusCode, ScanResponse{Success: false, RequestID: requestID(r), Error: message})
}
