package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/internal/mempool"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// workerRequest is a method call: {"name": "detect", "args": [...]}.
type workerRequest struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
}

// detectArgs is one raw frame. Data holds either W*H gray bytes or
// W*H*4 RGBA bytes, base64 encoded.
type detectArgs struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

// workerResponse is either {"type":"result","result":...} or
// {"type":"error","message":...}.
type workerResponse struct {
	Type    string `json:"type"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

// detectedSymbol is the per-symbol shape returned by detect.
type detectedSymbol struct {
	RawValue     string           `json:"rawValue"`
	BoundingBox  scanner.Rect     `json:"boundingBox"`
	CornerPoints [4]scanner.Point `json:"cornerPoints"`
}

var errBadFrame = errors.New("frame data length does not match width and height")

// scanWebSocketHandler serves the frame detection protocol.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own response, so headers already on w are lost.
	conn, err := upgrader.Upgrade(w, r, http.Header{RequestIDHeader: {requestID(r)}})
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "request_id", requestID(r))
	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage dispatches one request and writes exactly one reply.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req workerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	switch req.Name {
	case "detect":
		if len(req.Args) != 1 {
			s.sendWebSocketError(conn, "detect expects one argument")
			return
		}
		var args detectArgs
		if err := json.Unmarshal(req.Args[0], &args); err != nil {
			s.sendWebSocketError(conn, fmt.Sprintf("Invalid detect arguments: %v", err))
			return
		}
		symbols, err := s.detectFrame(ctx, args)
		if err != nil {
			s.sendWebSocketError(conn, err.Error())
			return
		}
		s.sendWebSocketResponse(conn, workerResponse{Type: "result", Result: symbols})
	default:
		s.sendWebSocketError(conn, "Unknown method: "+req.Name)
	}
}

// detectFrame scans one raw frame and returns its decoded symbols.
func (s *Server) detectFrame(ctx context.Context, args detectArgs) ([]detectedSymbol, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", args.Width, args.Height)
	}

	buf := mempool.GetBytes(base64.StdEncoding.DecodedLen(len(args.Data)))
	defer mempool.PutBytes(buf)
	n, err := base64.StdEncoding.Decode(buf, []byte(args.Data))
	if err != nil {
		return nil, fmt.Errorf("invalid frame data: %w", err)
	}
	pix := buf[:n]

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var res *scanner.ImageResult
	switch pixels := args.Width * args.Height; n {
	case 4 * pixels:
		res, err = s.scanner.ScanRGBA(ctx, pix, args.Width, args.Height)
	case pixels:
		res, err = s.scanner.ScanGray(ctx, pix, args.Width, args.Height)
	default:
		err = errBadFrame
	}
	if err != nil {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		return nil, err
	}
	scanDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
	observeSymbols("websocket", res.Symbols)
	scanner.SortSymbolsTopLeft(res)

	decoded := res.Decoded()
	out := make([]detectedSymbol, 0, len(decoded))
	for _, sym := range decoded {
		out = append(out, detectedSymbol{
			RawValue:     sym.RawValue,
			BoundingBox:  sym.BoundingBox,
			CornerPoints: sym.CornerPoints,
		})
	}
	return out, nil
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response workerResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, message string) {
	s.sendWebSocketResponse(conn, workerResponse{Type: "error", Message: message})
}
