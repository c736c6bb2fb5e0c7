// File path: internal/api/entries_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/jcarrick/logbook/internal/directory"
	"github.com/jcarrick/logbook/internal/mirror"
	"github.com/jcarrick/logbook/internal/replica"
)

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	result, err := s.coordinator.CreateEntry(r.Context(), req.ProjectID, req.Category, req.Content, req.Tags)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("project"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, errors.New("project query parameter required"))
		return
	}
	entries, err := s.store.ListEntriesByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list entries: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	entry, err := s.store.GetEntry(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, replica.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("entry %s not found", recordID))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("get entry: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry":   entry,
		"pending": mirror.IsPlaceholderID(entry.RecordID),
	})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	patch := mirror.EntryPatch{
		Category: req.Category,
		Content:  req.Content,
	}
	if req.Tags != nil {
		patch.Tags = []string(*req.Tags)
	}
	result, err := s.coordinator.UpdateEntry(r.Context(), recordID, patch)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	result, err := s.coordinator.DeleteEntry(r.Context(), recordID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	var replicaErr *mirror.ReplicaWriteError
	switch {
	case errors.Is(err, mirror.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, directory.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, replica.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &replicaErr):
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
