package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func testConfig() Config {
	return Config{
		CORSOrigin:     "*",
		MaxUploadMB:    1,
		TimeoutSec:     10,
		MetricsEnabled: true,
		Scanner:        scanner.DefaultConfig(),
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, http.Handler) {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, srv.Handler()
}

func symbolPNG(t *testing.T, content string) []byte {
	t.Helper()
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.MustSymbolImage(t, cfg)))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServer_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadMB = 0
	_, err := NewServer(cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.TimeoutSec = 0
	_, err = NewServer(cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.Scanner.Workers = -1
	_, err = NewServer(cfg)
	require.Error(t, err)

	srv, err := NewServer(testConfig())
	require.NoError(t, err)
	assert.Nil(t, srv.rateLimiter)
}

func TestServer_HealthHandler(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
		{"PUT request not allowed", http.MethodPut, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "healthy", response.Status)
			assert.NotEmpty(t, response.Time)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_ScanImage_JSON(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	req := multipartRequest(t, "/scan/image", "image", "code.png", symbolPNG(t, "hello server"), nil)
	w := serve(h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(RequestIDHeader))
	require.NotNil(t, resp.Result)
	assert.Equal(t, []string{"hello server"}, resp.Result.Values())
	assert.Positive(t, resp.Result.Symbols[0].BoundingBox.Width)
}

func TestServer_ScanImage_Formats(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	data := symbolPNG(t, "format check")

	t.Run("text", func(t *testing.T) {
		w := serve(h, multipartRequest(t, "/scan/image", "image", "a.png", data, map[string]string{"format": "text"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, w.Body.String(), "format check")
	})

	t.Run("csv", func(t *testing.T) {
		w := serve(h, multipartRequest(t, "/scan/image?format=csv", "image", "a.png", data, nil))
		require.Equal(t, http.StatusOK, w.Code)
		rows, err := csv.NewReader(w.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, scanner.CSVHeader(), rows[0])
		assert.Contains(t, rows[1], "format check")
	})

	t.Run("overlay", func(t *testing.T) {
		w := serve(h, multipartRequest(t, "/scan/image", "image", "a.png", data,
			map[string]string{"format": "overlay", "box": "#0000ff"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		img, err := png.Decode(w.Body)
		require.NoError(t, err)
		src, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, src.Bounds().Size(), img.Bounds().Size())
	})
}

func TestServer_ScanImage_NoSymbols(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.CreateTestImage(64, 64, color.White)))
	w := serve(h, multipartRequest(t, "/scan/image", "image", "blank.png", buf.Bytes(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Result.Symbols)
}

func TestServer_ScanImage_Errors(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		status  int
		message string
	}{
		{
			name: "missing image field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/scan/image", "", "", nil, map[string]string{"format": "json"})
			},
			status:  http.StatusBadRequest,
			message: "No image file provided",
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/scan/image", strings.NewReader("plain"))
			},
			status:  http.StatusBadRequest,
			message: "Failed to parse form data",
		},
		{
			name: "undecodable image",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/scan/image", "image", "x.png", []byte("not an image"), nil)
			},
			status:  http.StatusBadRequest,
			message: "Invalid image format",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/scan/image", "image", "big.png", make([]byte, 2<<20), nil)
			},
			status:  http.StatusRequestEntityTooLarge,
			message: "File too large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.req(t))
			assert.Equal(t, tt.status, w.Code)
			var resp ScanResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestServer_ScanPDF_Errors(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	w := serve(h, multipartRequest(t, "/scan/pdf", "", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, multipartRequest(t, "/scan/pdf", "pdf", "doc.pdf", []byte("%PDF-1.4"), map[string]string{"pages": "3-1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid page range")

	w = serve(h, multipartRequest(t, "/scan/pdf", "pdf", "doc.pdf", []byte("garbage"), nil))
	assert.GreaterOrEqual(t, w.Code, 400)
	assert.Less(t, w.Code, 500)
	var resp PDFResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "PDF processing failed")
}

func TestServer_Metrics(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "qrscan_http_requests_total")

	cfg := testConfig()
	cfg.MetricsEnabled = false
	_, h = newTestServer(t, cfg)
	w = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseHexColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#ff0000", color.RGBA{255, 0, 0, 255}},
		{"00ff7f", color.RGBA{0, 255, 127, 255}},
		{"", def},
		{"#fff", def},
		{"zzzzzz", def},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHexColor(tt.in, def))
		})
	}
}

func TestStatusForScanError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForScanError(scanner.ErrNilImage))
	assert.Equal(t, http.StatusGatewayTimeout, statusForScanError(fmt.Errorf("scan: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusForScanError(io.ErrUnexpectedEOF))
}
