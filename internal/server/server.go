// Package server provides the HTTP monitor for a running relay.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/handpilot/internal/relay"
	"github.com/ayusman/handpilot/internal/server/api"
	"github.com/ayusman/handpilot/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config selects what the monitor exposes. Routes backed by a nil field are
// not registered.
type Config struct {
	Store *store.Store
	Hub   *relay.Hub
}

// Server is the HTTP monitor.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server and registers its routes.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if config.Hub != nil {
		s.mux.HandleFunc("GET /api/state", s.handleState)
		s.mux.Handle("GET /api/stream", NewStreamHandler(config.Hub))
	}
	if config.Store != nil {
		sessions := api.NewSessionHandler(config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Hub != nil {
		resp.Subscribers = s.config.Hub.Subscribers()
	}
	writeJSON(w, resp)
}

// handleState answers with the latest relayed record, or 204 before the
// first one arrives.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.config.Hub.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, rec)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("Monitor listening on http://%s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
