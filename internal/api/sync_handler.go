// File path: internal/api/sync_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("reconciler not configured"))
		return
	}
	status, err := s.reconciler.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("sync status: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSyncRun triggers a single reconciliation sweep on demand, outside
// the background schedule.
func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("reconciler not configured"))
		return
	}
	stats, err := s.reconciler.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("sync run: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
