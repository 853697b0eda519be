package support

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/server"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

const requestTimeout = 30 * time.Second

// RegisterServerSteps registers HTTP API and detect worker steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scanning server is running$`, testCtx.theScanningServerIsRunning)
	sc.Step(`^the scanning server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theScanningServerIsRunningWithLimit)

	sc.Step(`^I send a (GET|POST|OPTIONS) request to "([^"]*)"$`, testCtx.iSendARequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)

	sc.Step(`^I connect to the detect worker$`, testCtx.iConnectToTheDetectWorker)
	sc.Step(`^I send the (RGBA|grayscale) pixels of "([^"]*)" to the detect worker$`, testCtx.iSendPixels)
	sc.Step(`^I send the worker message '([^']*)'$`, testCtx.iSendTheWorkerMessage)
	sc.Step(`^the worker should reply with type "([^"]*)"$`, testCtx.theWorkerShouldReplyWithType)
	sc.Step(`^the worker reply field "([^"]*)" should be "([^"]*)"$`, testCtx.theWorkerReplyFieldShouldBe)
}

func (testCtx *TestContext) theScanningServerIsRunning() error {
	return testCtx.startServer(server.RateLimitConfig{})
}

func (testCtx *TestContext) theScanningServerIsRunningWithLimit(perMinute int) error {
	return testCtx.startServer(server.RateLimitConfig{RequestsPerMinute: perMinute})
}

func (testCtx *TestContext) startServer(limits server.RateLimitConfig) error {
	srv, err := server.NewServer(server.Config{
		Host:           "localhost",
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     10,
		MetricsEnabled: true,
		Scanner:        scanner.DefaultConfig(),
		RateLimit:      limits,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = srv
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) baseURL() (string, error) {
	if testCtx.HTTPServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPServer.URL, nil
}

func (testCtx *TestContext) iSendARequestTo(method, path string) error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, base+path, http.NoBody)
	if err != nil {
		return err
	}
	if method == http.MethodOptions {
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	return testCtx.do(req)
}

// iUploadTo posts a file as multipart form data. The form field is the last
// element of the endpoint path, so "/scan/image" receives field "image".
func (testCtx *TestContext) iUploadTo(name, target string) error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}

	endpoint, _, _ := strings.Cut(target, "?")
	field := endpoint[strings.LastIndex(endpoint, "/")+1:]

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, base+target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != want {
		return fmt.Errorf("header %s is %q, want %q", name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, want string) error {
	return checkJSONField(testCtx.LastHTTPResponse, field, want)
}

func (testCtx *TestContext) iConnectToTheDetectWorker() error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to detect worker: %w", err)
	}
	testCtx.WorkerConn = conn
	return nil
}

// iSendPixels sends an image as a raw frame the way a camera page does.
func (testCtx *TestContext) iSendPixels(kind, name string) error {
	img, _, err := utils.LoadImage(testCtx.path(name))
	if err != nil {
		return err
	}
	b := img.Bounds()
	var pix []byte
	if kind == "RGBA" {
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		pix = rgba.Pix
	} else {
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		pix = gray.Pix
	}

	msg, err := json.Marshal(map[string]any{
		"name": "detect",
		"args": []any{map[string]any{
			"width":  b.Dx(),
			"height": b.Dy(),
			"data":   base64.StdEncoding.EncodeToString(pix),
		}},
	})
	if err != nil {
		return err
	}
	return testCtx.iSendTheWorkerMessage(string(msg))
}

func (testCtx *TestContext) iSendTheWorkerMessage(msg string) error {
	if testCtx.WorkerConn == nil {
		if err := testCtx.iConnectToTheDetectWorker(); err != nil {
			return err
		}
	}
	conn := testCtx.WorkerConn
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("no reply from detect worker: %w", err)
	}
	testCtx.WorkerReply = nil
	if err := json.Unmarshal(data, &testCtx.WorkerReply); err != nil {
		return fmt.Errorf("invalid worker reply %s: %w", data, err)
	}
	return nil
}

func (testCtx *TestContext) theWorkerShouldReplyWithType(want string) error {
	if got := fmt.Sprint(testCtx.WorkerReply["type"]); got != want {
		return fmt.Errorf("worker replied with type %q, want %q: %v", got, want, testCtx.WorkerReply)
	}
	return nil
}

func (testCtx *TestContext) theWorkerReplyFieldShouldBe(field, want string) error {
	got, err := lookupJSON(any(testCtx.WorkerReply), field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != want {
		return fmt.Errorf("worker reply field %s is %q, want %q", field, s, want)
	}
	return nil
}
