package support

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/internal/server"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Dir is the scenario's scratch directory; "{dir}" in commands and
	// paths expands to it.
	Dir string

	// Command execution state
	LastCommand string
	LastOutput  string
	LastStderr  string
	LastError   error

	// Server state
	Server     *server.Server
	HTTPServer *httptest.Server

	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header

	// WebSocket worker state
	WorkerConn  *websocket.Conn
	WorkerReply map[string]any
}

// NewTestContext creates a scenario context with its own scratch directory.
func NewTestContext() (*TestContext, error) {
	dir, err := os.MkdirTemp("", "qrscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{Dir: dir}, nil
}

// Cleanup stops servers and removes the scratch directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.WorkerConn != nil {
		if err := testCtx.WorkerConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close worker connection: %w", err))
		}
	}
	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, err)
	}
	if err := os.RemoveAll(testCtx.Dir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.Dir, err))
	}
	return errors.Join(errs...)
}

// StopServer shuts down the test server if one is running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if testCtx.Server != nil {
		err := testCtx.Server.Close()
		testCtx.Server = nil
		return err
	}
	return nil
}

// path resolves a scenario path: "{dir}" is expanded and relative paths
// are taken relative to Dir.
func (testCtx *TestContext) path(name string) string {
	name = testCtx.expand(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.Dir, name)
}

func (testCtx *TestContext) expand(s string) string {
	return strings.ReplaceAll(s, "{dir}", testCtx.Dir)
}
