// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/jcarrick/logbook/internal/common"
	"github.com/jcarrick/logbook/internal/data/orchestrator"
	"github.com/jcarrick/logbook/internal/mirror"
	"github.com/jcarrick/logbook/internal/reconcile"
	"github.com/jcarrick/logbook/internal/replica"
)

// Server exposes the dual-write coordinator and the replica read path over
// HTTP.
type Server struct {
	router      chi.Router
	store       *replica.Store
	coordinator *mirror.Coordinator
	reconciler  *reconcile.Reconciler

	orchestrator *orchestrator.Orchestrator
}

// NewServer builds the HTTP server on top of an initialised orchestrator.
func NewServer(ctx context.Context, orch *orchestrator.Orchestrator) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	store := orch.Replica()
	if store == nil {
		return nil, fmt.Errorf("replica store unavailable")
	}
	coordinator := orch.Coordinator()
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator unavailable")
	}
	records := orch.Records()
	logger.Info(
		"api: building server",
		"recordstore_configured", records != nil,
		"recordstore_available", records != nil && records.Available(),
	)
	srv := &Server{
		router:       chi.NewRouter(),
		store:        store,
		coordinator:  coordinator,
		reconciler:   orch.Reconciler(),
		orchestrator: orch,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	s.router.Post("/v1/entries", s.handleCreateEntry)
	s.router.Get("/v1/entries", s.handleListEntries)
	s.router.Get("/v1/entries/{recordID}", s.handleGetEntry)
	s.router.Patch("/v1/entries/{recordID}", s.handleUpdateEntry)
	s.router.Delete("/v1/entries/{recordID}", s.handleDeleteEntry)
	s.router.Get("/v1/projects", s.handleListProjects)
	s.router.Post("/v1/projects", s.handleUpsertProject)
	s.router.Get("/v1/sync/status", s.handleSyncStatus)
	s.router.Post("/v1/sync/run", s.handleSyncRun)
	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
