// File path: internal/api/projects_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jcarrick/logbook/internal/replica"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list projects: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// handleUpsertProject seeds or refreshes a project mapping. The coordinator
// itself never creates projects; this is the "created elsewhere" edge.
func (s *Server) handleUpsertProject(w http.ResponseWriter, r *http.Request) {
	var req upsertProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.LocalID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("local_id required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name required"))
		return
	}
	project := replica.Project{
		LocalID:         strings.TrimSpace(req.LocalID),
		AuthoritativeID: req.AuthoritativeID,
		Name:            strings.TrimSpace(req.Name),
		Status:          strings.TrimSpace(req.Status),
	}
	if err := s.store.UpsertProject(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("upsert project: %w", err))
		return
	}
	stored, err := s.store.GetProject(r.Context(), project.LocalID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reload project: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
