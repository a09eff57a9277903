package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/pkg/core/logging"
)

// readTimeout closes idle WebSocket connections
const readTimeout = 120 * time.Second

// WebSocket message types
const (
	WSTypeEvaluate = "evaluate"
	WSTypePing     = "ping"
	WSTypeResult   = "result"
	WSTypeError    = "error"
	WSTypePong     = "pong"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a client message
type WSMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSResponse is a server message. ID echoes the client message ID.
type WSResponse struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// WebSocketHandler evaluates expressions over a WebSocket connection.
// Messages on one connection are answered in order.
type WebSocketHandler struct {
	svc    *service.Service
	logger *logging.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(svc *service.Service, logger *logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.New("websocket")
	}
	return &WebSocketHandler{svc: svc, logger: logger}
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.handleConnection(ctx, conn, uuid.New().String())
}

func (h *WebSocketHandler) handleConnection(ctx context.Context, conn *websocket.Conn, connID string) {
	defer conn.Close()

	logger := h.logger.With("connection", connID)
	logger.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", "error", err.Error())
			} else {
				logger.Info("WebSocket connection closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var resp WSResponse
		switch msg.Type {
		case WSTypePing:
			resp = WSResponse{Type: WSTypePong, ID: msg.ID}
		case WSTypeEvaluate:
			resp = h.evaluate(ctx, msg, connID)
		default:
			resp = errorResponse(msg.ID, ErrorBody{
				Code:    string(mdwerror.CodeInvalidInput),
				Message: "Unknown message type: " + msg.Type,
			})
		}

		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("WebSocket send error", "error", err.Error())
			return
		}
	}
}

func (h *WebSocketHandler) evaluate(ctx context.Context, msg WSMessage, connID string) WSResponse {
	var req EvaluateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return errorResponse(msg.ID, ErrorBody{
			Code:    string(mdwerror.CodeInvalidInput),
			Message: "Invalid evaluate payload",
		})
	}

	requestID := msg.ID
	if requestID == "" {
		requestID = connID
	}

	result, err := h.svc.Evaluate(ctx, req.Expression, service.EvaluateOptions{
		Strict:    req.Strict,
		Source:    service.SourceWebSocket,
		RequestID: requestID,
	})
	if err != nil {
		return errorResponse(msg.ID, toErrorBody(err))
	}
	return WSResponse{Type: WSTypeResult, ID: msg.ID, Payload: toEvaluateResponse(result)}
}

func errorResponse(id string, body ErrorBody) WSResponse {
	return WSResponse{Type: WSTypeError, ID: id, Payload: body}
}
