package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/internal/pascal/store"
	"github.com/msto63/pascal/pkg/core/health"
	"github.com/msto63/pascal/pkg/core/logging"
	"github.com/msto63/pascal/pkg/core/version"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 << 10

// RequestIDHeader carries the request ID over HTTP
const RequestIDHeader = "X-Request-ID"

// EvaluateRequest is the body of POST /api/v1/evaluate
type EvaluateRequest struct {
	Expression string `json:"expression"`
	Strict     *bool  `json:"strict,omitempty"`
}

// EvaluateResponse is a successful evaluation
type EvaluateResponse struct {
	ID         string  `json:"id,omitempty"`
	Expression string  `json:"expression"`
	Value      int     `json:"value"`
	Strict     bool    `json:"strict"`
	Cached     bool    `json:"cached"`
	DurationMs float64 `json:"duration_ms"`
}

// HistoryResponse is a page of recorded evaluations
type HistoryResponse struct {
	Records []*store.Record `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ClearResponse reports removed history entries
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Handler handles HTTP requests for the evaluator API
type Handler struct {
	svc       *service.Service
	health    *health.Registry
	logger    *logging.Logger
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(svc *service.Service, registry *health.Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("http")
	}
	return &Handler{
		svc:       svc,
		health:    registry,
		logger:    logger,
		startTime: time.Now(),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/health" {
		h.handleHealth(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		h.handleRoot(w, r)
	case path == "health":
		h.handleHealth(w, r)
	case path == "evaluate":
		h.handleEvaluate(w, r)
	case path == "check":
		h.handleCheck(w, r)
	case path == "stats":
		h.handleStats(w, r)
	case path == "history":
		h.handleHistory(w, r)
	case strings.HasPrefix(path, "history/"):
		h.handleRecord(w, r, strings.TrimPrefix(path, "history/"))
	default:
		h.writeError(w, http.StatusNotFound, string(mdwerror.CodeNotFound), "No route for "+r.URL.Path)
	}
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service": "pascal",
		"version": version.Get(),
		"uptime":  time.Since(h.startTime).String(),
		"endpoints": []string{
			"POST /api/v1/evaluate",
			"GET /api/v1/evaluate?expr=",
			"GET /api/v1/evaluate/ws",
			"GET /api/v1/check",
			"GET /api/v1/history",
			"GET /api/v1/history/{id}",
			"DELETE /api/v1/history",
			"GET /api/v1/stats",
			"GET /health",
		},
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "GET")
		return
	}

	report := h.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		if !q.Has("expr") {
			h.writeError(w, http.StatusBadRequest, string(mdwerror.CodeInvalidInput), "Query parameter expr is required")
			return
		}
		req.Expression = q.Get("expr")
		if raw := q.Get("strict"); raw != "" {
			strict, err := strconv.ParseBool(raw)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, string(mdwerror.CodeInvalidInput), "Invalid strict parameter: "+raw)
				return
			}
			req.Strict = &strict
		}
	case http.MethodPost:
		if err := h.readJSON(w, r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, string(mdwerror.CodeInvalidInput), "Invalid request body: "+err.Error())
			return
		}
	default:
		h.methodNotAllowed(w, "GET, POST")
		return
	}

	result, err := h.svc.Evaluate(r.Context(), req.Expression, service.EvaluateOptions{
		Strict:    req.Strict,
		Source:    service.SourceHTTP,
		RequestID: requestID(r),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toEvaluateResponse(result))
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "GET")
		return
	}

	report, err := h.svc.Check(r.Context(), nil)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reportMap(report))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "GET")
		return
	}

	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, err := intParam(r, "limit", store.DefaultListLimit)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, string(mdwerror.CodeInvalidInput), err.Error())
			return
		}
		offset, err := intParam(r, "offset", 0)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, string(mdwerror.CodeInvalidInput), err.Error())
			return
		}

		records, err := h.svc.History(r.Context(), limit, offset)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, HistoryResponse{
			Records: records,
			Total:   len(records),
			Limit:   limit,
			Offset:  offset,
		})

	case http.MethodDelete:
		n, err := h.svc.ClearHistory(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, ClearResponse{Removed: n})

	default:
		h.methodNotAllowed(w, "GET, DELETE")
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, "GET")
		return
	}

	rec, err := h.svc.Record(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Helper methods

func toEvaluateResponse(result *service.Result) EvaluateResponse {
	return EvaluateResponse{
		ID:         result.ID,
		Expression: result.Expression,
		Value:      result.Value,
		Strict:     result.Strict,
		Cached:     result.Cached,
		DurationMs: durationMillis(result.Duration),
	}
}

func toErrorBody(err error) ErrorBody {
	body := ErrorBody{
		Code:    mdwerror.GetCode(err).String(),
		Message: err.Error(),
	}
	var coded *mdwerror.Error
	if errors.As(err, &coded) {
		body.Details = coded.Details()
	}
	return body
}

func requestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name + " parameter: " + raw)
	}
	return n, nil
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", "error", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	h.writeJSON(w, mdwerror.GetCode(err).HTTPStatus(), ErrorResponse{Error: toErrorBody(err)})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Use "+allow)
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket upgrades
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
