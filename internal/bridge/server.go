package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voicelive/internal/assistant"
	"github.com/Raikerian/go-voicelive/internal/config"
)

const serverVersion = "1.0.0"

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type interactionRequest struct {
	Text string `json:"text"`
}

type interactionResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the bridge over HTTP: a WebSocket voice endpoint, a REST
// text endpoint and health probes.
type Server struct {
	logger   *zap.Logger
	cfg      *config.Config
	provider assistant.Provider
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer creates the bridge server.
func NewServer(logger *zap.Logger, cfg *config.Config, provider assistant.Provider) *Server {
	return &Server{
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routing for the bridge.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatus)
	mux.HandleFunc("/health", s.handleStatus)
	mux.HandleFunc("/api/interaction", s.handleInteraction)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start begins serving on the configured listen address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Bridge.ListenAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Bridge server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("Bridge server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		http.NotFound(w, r)
		return
	}

	writeCORS(w)
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "healthy", Version: serverVersion})
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text field is required"})
		return
	}

	reply, err := s.provider.TextTurn(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("Text interaction failed", zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "assistant unavailable"})
		return
	}

	s.writeJSON(w, http.StatusOK, interactionResponse{Text: reply})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s.logger.Info("Voice client connected", zap.String("remote", conn.RemoteAddr().String()))
	newSession(s.logger, s.cfg, s.provider, conn).run(r.Context())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response body", zap.Error(err))
	}
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
