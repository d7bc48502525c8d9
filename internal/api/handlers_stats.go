package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/teiedit/internal/normdata"
)

func (s *Server) handleNormdata(w http.ResponseWriter, r *http.Request) {
	if s.deps.Normdata == nil {
		jsonError(w, "normdata is not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	entry, err := s.deps.Normdata.Lookup(r.Context(), id)
	if errors.Is(err, normdata.ErrNotFound) {
		jsonError(w, "normdata entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Warn("normdata lookup failed", "id", id, "error", err)
		jsonError(w, "normdata lookup failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleValidationStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		jsonError(w, "validation stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": s.deps.Stats.Snapshot(),
	})
}
