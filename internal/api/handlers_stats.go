package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
)

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"converter":   s.cfg.Converter,
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.RenderStats(),
	})
}

// handleHistory lists recent variant builds, optionally for one job.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "build history disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			jsonError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), r.URL.Query().Get("job_id"), limit)
	if err != nil {
		jsonError(w, "failed to read history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"builds": entries})
}
