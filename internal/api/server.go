// Package api is a minimal health/readiness HTTP surface for the engine
// process (SPEC_FULL.md §2: explicitly not the excluded operator
// dashboard). Adapted from the teacher's internal/api/server.go: same
// Server/NewServer/Start/Shutdown shape and the same /api/health,
// /api/ready handlers, with every dashboard route (positions, pnl, perf,
// coach, sizing, grant-report, builder, ...) dropped along with the
// execution/paper/risk state they exposed.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"
)

// StatusProvider exposes just enough engine state for liveness/readiness
// checks; implemented by *engine.Engine.
type StatusProvider interface {
	Running() bool
	TradingMode() string
	StoreReady(ctx context.Context) bool
}

// Server is a lightweight HTTP API exposing health and readiness only.
type Server struct {
	httpServer *http.Server
	status     StatusProvider
	startedAt  time.Time
}

// NewServer creates a new API server bound to addr.
func NewServer(addr string, status StatusProvider) *Server {
	s := &Server{
		status:    status,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/ready", s.handleReady)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("api server listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("api server: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /api/health — liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/ready — readiness probe: engine loop running and the store
// reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	running := s.status.Running()
	storeOK := s.status.StoreReady(r.Context())
	ready := running && storeOK

	resp := map[string]interface{}{
		"ready":        ready,
		"trading_mode": s.status.TradingMode(),
		"uptime_s":     time.Since(s.startedAt).Seconds(),
	}
	if !ready {
		if !running {
			resp["reason"] = "engine_not_running"
		} else {
			resp["reason"] = "store_unreachable"
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	s.writeJSON(w, resp)
}
