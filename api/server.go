package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/asiloisad/pulsar-pulsar-mcp/bridge/service"
	"github.com/asiloisad/pulsar-pulsar-mcp/logging"
	"github.com/asiloisad/pulsar-pulsar-mcp/mcp"
	"github.com/asiloisad/pulsar-pulsar-mcp/transport/websocket"
)

// Server routes bridge HTTP traffic. It implements http.Handler and
// wraps the router so that CORS headers, preflight handling and panic
// recovery apply to every response, including 404s the router never
// sees a handler for.
type Server struct {
	svc      service.BridgeService
	sessions service.SessionStore
	hub      *websocket.Hub
	protocol *mcp.Handler
	router   *mux.Router
	log      *slog.Logger
}

// NewServer creates the HTTP surface over a tool service and session
// store. hub may be nil to disable the activity feed.
func NewServer(svc service.BridgeService, sessions service.SessionStore, hub *websocket.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{
		svc:      svc,
		sessions: sessions,
		hub:      hub,
		protocol: mcp.NewHandler(svc, sessions, log),
		router:   mux.NewRouter(),
		log:      log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all bridge routes
func (s *Server) setupRoutes() {
	// MCP endpoint
	s.router.HandleFunc("/mcp", s.handleMCP).Methods("POST")
	s.router.HandleFunc("/mcp", s.handleDeleteSession).Methods("DELETE")

	// REST convenience surface
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/tools", s.handleListTools).Methods("GET")
	// Tool names start with an uppercase letter followed by letters
	// only; anything else falls through to 404.
	s.router.HandleFunc("/tools/{tool:[A-Z][a-zA-Z]*}", s.handleCallTool).Methods("POST")

	// WebSocket activity feed
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			s.log.Error("panic in request handler", "method", r.Method, "path", r.URL.Path, "panic", p)
			respondError(rec, http.StatusInternalServerError, fmt.Sprintf("%v", p))
		}
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode(),
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds())
	}()

	setCORS(rec)
	if r.Method == http.MethodOptions {
		rec.WriteHeader(http.StatusNoContent)
		return
	}

	s.router.ServeHTTP(rec, r)
}

// statusRecorder captures the status and body size for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack keeps the /ws upgrade working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// statusCode reports 200 for handlers that wrote a body without an
// explicit WriteHeader, and for hijacked connections.
func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id")
	h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// MCP Handlers

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	// A read failure leaves an empty body, which the protocol handler
	// reports as a parse error.
	body, _ := io.ReadAll(r.Body)

	reply := s.protocol.HandleBody(r.Context(), body, r.Header.Get("Mcp-Session-Id"))

	if reply.SessionID != "" {
		w.Header().Set("Mcp-Session-Id", reply.SessionID)
	}
	if reply.Body == nil {
		w.WriteHeader(reply.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	w.Write(reply.Body)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	// Termination is idempotent: unknown or missing session ids still
	// get a 204.
	if sessionID := r.Header.Get("Mcp-Session-Id"); sessionID != "" {
		if err := s.sessions.Delete(sessionID); err == nil {
			s.log.Debug("session terminated", "session_id", sessionID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// REST Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tools": s.svc.ListTools(r.Context()),
	})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["tool"]

	args := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && err != io.EOF {
		respondJSON(w, http.StatusBadRequest, service.Fail("Invalid request body"))
		return
	}

	res := s.svc.Execute(r.Context(), name, args)
	if res.Success {
		respondJSON(w, http.StatusOK, res)
		return
	}
	if res.Error == "" {
		res.Error = "Tool execution failed"
	}
	respondJSON(w, http.StatusBadRequest, res)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "activity feed disabled")
		return
	}
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = websocket.TopicTools
	}
	s.hub.ServeWS(w, r, topic)
}
