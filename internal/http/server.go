// Package http exposes the ledger as a JSON API: auth, category and
// transaction management, and the dashboard aggregates.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/ledger"
)

type Server struct {
	http.Server

	store       *ledger.Store
	auth        *auth.Service
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, authService *auth.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		store:       store,
		auth:        authService,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.public(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/signin", s.public(s.handleSignIn))
	mux.HandleFunc("POST /api/auth/signout", s.public(s.handleSignOut))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{name}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/dashboard", s.protected(s.handleDashboard))
	mux.HandleFunc("GET /api/dashboard/summary.csv", s.protected(s.handleSummaryCSV))

	return s
}

// Shutdown stops the HTTP server and the middleware cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the backing store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// A read against a nonexistent owner is the cheapest store probe.
	if _, err := s.store.LoadCategories(ctx, "readyz-probe"); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
