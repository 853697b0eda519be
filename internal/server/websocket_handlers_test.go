package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/draw"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{messageType: messageType, data: data})
	return nil
}

// reply decodes the single message sent on conn.
func (m *mockWebSocketConn) reply(t *testing.T) map[string]any {
	t.Helper()
	require.Len(t, m.sentMessages, 1)
	assert.Equal(t, websocket.TextMessage, m.sentMessages[0].messageType)
	var out map[string]any
	require.NoError(t, json.Unmarshal(m.sentMessages[0].data, &out))
	return out
}

func detectMessage(t *testing.T, w, h int, pix []byte) []byte {
	t.Helper()
	args, err := json.Marshal(detectArgs{Width: w, Height: h, Data: base64.StdEncoding.EncodeToString(pix)})
	require.NoError(t, err)
	msg, err := json.Marshal(workerRequest{Name: "detect", Args: []json.RawMessage{args}})
	require.NoError(t, err)
	return msg
}

func symbolFrame(t *testing.T, content string) *image.RGBA {
	t.Helper()
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	return testutil.MustSymbolImage(t, cfg)
}

func grayFrame(src *image.RGBA) *image.Gray {
	g := image.NewGray(src.Bounds())
	draw.Draw(g, g.Bounds(), src, src.Bounds().Min, draw.Src)
	return g
}

func TestWebSocket_DetectRGBA(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	img := symbolFrame(t, "rgba frame")
	b := img.Bounds()

	conn := &mockWebSocketConn{}
	srv.handleWebSocketMessage(context.Background(), conn, detectMessage(t, b.Dx(), b.Dy(), img.Pix))

	out := conn.reply(t)
	assert.Equal(t, "result", out["type"])
	results, ok := out["result"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	sym, ok := results[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rgba frame", sym["rawValue"])
	assert.Contains(t, sym, "boundingBox")
	assert.Contains(t, sym, "cornerPoints")
	assert.NotContains(t, sym, "error")
}

func TestWebSocket_DetectGray(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	g := grayFrame(symbolFrame(t, "gray frame"))
	b := g.Bounds()

	conn := &mockWebSocketConn{}
	srv.handleWebSocketMessage(context.Background(), conn, detectMessage(t, b.Dx(), b.Dy(), g.Pix))

	out := conn.reply(t)
	require.Equal(t, "result", out["type"], out["message"])
	results, ok := out["result"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "gray frame", results[0].(map[string]any)["rawValue"])
}

func TestWebSocket_DetectEmptyFrame(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	pix := make([]byte, 32*32)
	for i := range pix {
		pix[i] = 0xff
	}
	conn := &mockWebSocketConn{}
	srv.handleWebSocketMessage(context.Background(), conn, detectMessage(t, 32, 32, pix))

	out := conn.reply(t)
	assert.Equal(t, "result", out["type"])
	assert.Equal(t, []any{}, out["result"])
}

func TestWebSocket_Errors(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name    string
		msg     []byte
		message string
	}{
		{"unknown method", []byte(`{"name":"scanAll","args":[]}`), "Unknown method: scanAll"},
		{"bad json", []byte(`{`), "Failed to parse request"},
		{"missing args", []byte(`{"name":"detect","args":[]}`), "detect expects one argument"},
		{"bad size", detectMessage(t, 0, 4, nil), "invalid frame size 0x4"},
		{"bad length", detectMessage(t, 4, 4, make([]byte, 5)), errBadFrame.Error()},
		{"bad base64", []byte(`{"name":"detect","args":[{"width":1,"height":1,"data":"!!"}]}`), "invalid frame data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			srv.handleWebSocketMessage(context.Background(), conn, tt.msg)
			out := conn.reply(t)
			assert.Equal(t, "error", out["type"])
			assert.True(t, strings.HasPrefix(out["message"].(string), tt.message), out["message"])
			assert.NotContains(t, out, "result")
		})
	}
}

func TestWebSocket_EchoesRequestID(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{RequestIDHeader: {"frame-42"}})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()
	assert.Equal(t, "frame-42", resp.Header.Get(RequestIDHeader))
}

func TestWebSocket_Roundtrip(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	img := symbolFrame(t, "over the wire")
	b := img.Bounds()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, detectMessage(t, b.Dx(), b.Dy(), img.Pix)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"nope","args":[]}`)))

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var first, second workerResponse
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "result", first.Type)
	results, ok := first.Result.([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "over the wire", results[0].(map[string]any)["rawValue"])

	assert.Equal(t, "error", second.Type)
	assert.Equal(t, "Unknown method: nope", second.Message)
}
