// Package relay exposes the ad-hoc HTTP entry point: POST /bot-post forwards
// a message to the notification channel. By (inherited) contract the endpoint
// answers 200 even when dispatch fails; the failure is only logged.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stampbot/internal/transport"
	"stampbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

type Server struct {
	cfg    Config
	sender transport.Sender
	log    logx.Logger

	srv *http.Server
	ln  net.Listener
}

func New(cfg Config, sender transport.Sender, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, sender: sender, log: log.With(logx.String("comp", "relay"))}
}

type botPostRequest struct {
	Message string `json:"message"`
}

// Handler builds the route tree. Exported for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	// The relay is called from browser dashboards; origin policy is open,
	// matching the deployed contract.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Post("/bot-post", s.handleBotPost)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBotPost(w http.ResponseWriter, r *http.Request) {
	var req botPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	// Known contract weakness, preserved on purpose: dispatch failures are
	// logged but the caller still gets a 200.
	if err := s.sender.SendText(r.Context(), req.Message); err != nil {
		s.log.Error("relay dispatch failed", logx.Err(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("took", time.Since(start)),
		)
	})
}

// Start binds the listener and serves in the background. Disabled config is
// a no-op.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("relay disabled")
		return nil
	}
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("relay server stopped unexpectedly", logx.Err(err))
		}
	}()
	s.log.Info("relay listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	s.srv = nil
	s.ln = nil
	return err
}
