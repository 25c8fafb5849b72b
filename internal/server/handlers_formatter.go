package server

import (
	"encoding/json"
	"net/http"
)

// getFormatterStatus handles GET /formatter
func (s *Server) getFormatterStatus(w http.ResponseWriter, r *http.Request) {
	if s.formatterManager == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	writeJSON(w, http.StatusOK, s.formatterManager.Status())
}

// formatFile handles POST /formatter/format
func (s *Server) formatFile(w http.ResponseWriter, r *http.Request) {
	if s.formatterManager == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "Formatter not initialized")
		return
	}

	var req struct {
		Path  string   `json:"path"`
		Paths []string `json:"paths,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.Path != "" {
		result, err := s.formatterManager.Format(r.Context(), req.Path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(req.Paths) > 0 {
		writeJSON(w, http.StatusOK, s.formatterManager.FormatMultiple(r.Context(), req.Paths))
		return
	}

	writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Either 'path' or 'paths' is required")
}
