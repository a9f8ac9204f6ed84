package server

import (
	"encoding/json"
	"net/http"
)

// handleCacheStats reports the installation cache contents as JSON.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		http.Error(w, "installation cache not configured", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.deps.Cache.Stats()); err != nil {
		s.logError(r.Context(), "failed to encode cache stats", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleCacheFlush drops every cached installation mapping.
func (s *Server) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		http.Error(w, "installation cache not configured", http.StatusNotFound)
		return
	}

	s.deps.Cache.InvalidateAll()
	s.logInfo(r.Context(), "installation cache flushed", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
