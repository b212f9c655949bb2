package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketCodesRequest asks for extraction of one document. Data is the
// raw file, base64 encoded in JSON.
type WebSocketCodesRequest struct {
	Mode     string `json:"mode"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketCodesResponse is sent once when work starts and once when it ends.
type WebSocketCodesResponse struct {
	Type      string `json:"type"`
	Status    string `json:"status"` // processing, completed, error
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// codesWebSocketHandler upgrades the connection and serves extraction
// requests until the client goes away.
func (s *Server) codesWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.handleWebSocketConnection(ctx, conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
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

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage runs one extraction request and writes its replies.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketCodesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", err.Error())
		return
	}

	requestID := uuid.NewString()
	s.sendWebSocketResponse(conn, WebSocketCodesResponse{
		Type:      "codes_response",
		Status:    "processing",
		RequestID: requestID,
	})

	u := pipeline.Upload{Filename: req.Filename}
	if req.Data != nil {
		u.Body = bytes.NewReader(req.Data)
	}

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	res, err := s.runExtraction(ctx, u, mode)
	if err != nil {
		errType := "processing_error"
		if statusForError(err) == http.StatusBadRequest {
			errType = "invalid_request"
		}
		s.sendWebSocketError(conn, requestID, errType, messageForError(err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketCodesResponse{
		Type:      "codes_response",
		Status:    "completed",
		Result:    codesResponse(mode, res),
		RequestID: requestID,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketCodesResponse) {
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

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketCodesResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
