package webserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ichi0g0y/retro-wheel/internal/localdb"
	"github.com/ichi0g0y/retro-wheel/internal/shared/logger"
	"github.com/ichi0g0y/retro-wheel/internal/types"
	"go.uber.org/zap"
)

const maxLibraryBody = 32 << 20

// handleLibrary returns (GET) or replaces (POST) the game library
func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Library unavailable", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		snap, err := s.store.GetLibrarySnapshot(r.Context())
		if err != nil {
			logger.Error("Failed to load library", zap.Error(err))
			http.Error(w, "Failed to load library", http.StatusInternalServerError)
			return
		}
		writeJSON(w, snap)

	case http.MethodPost, http.MethodPut:
		// a bare array of games or {"games": [...]}
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLibraryBody))
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		games, err := localdb.DecodeLibrary(data)
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		updatedAt, err := s.store.ReplaceLibrary(r.Context(), games)
		if err != nil {
			logger.Error("Failed to replace library", zap.Error(err))
			http.Error(w, "Failed to replace library", http.StatusInternalServerError)
			return
		}
		// the new stamp changes the snapshot key, so no explicit invalidation
		writeJSON(w, map[string]interface{}{
			"success":   true,
			"count":     len(games),
			"updatedAt": updatedAt,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSuggestions lists (GET) or adds (POST) viewer suggestions
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Suggestions unavailable", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.store.ListOpenSuggestions(r.Context())
		if err != nil {
			logger.Error("Failed to list suggestions", zap.Error(err))
			http.Error(w, "Failed to list suggestions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"suggestions": items, "count": len(items)})

	case http.MethodPost:
		var body types.Suggestion
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		created, err := s.store.AddSuggestion(r.Context(), body)
		if err != nil {
			logger.Error("Failed to add suggestion", zap.Error(err))
			http.Error(w, "Failed to add suggestion", http.StatusInternalServerError)
			return
		}
		s.wheel.Invalidate()
		writeJSON(w, created)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSuggestionStatus accepts or rejects a suggestion
func (s *Server) handleSuggestionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "Suggestions unavailable", http.StatusServiceUnavailable)
		return
	}

	var body struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.store.SetSuggestionStatus(r.Context(), body.ID, body.Status); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.wheel.Invalidate()
	writeJSON(w, map[string]interface{}{"success": true})
}

// handleActiveEvent reads (GET), sets (POST) or ends (DELETE) the running event
func (s *Server) handleActiveEvent(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Events unavailable", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		event, err := s.store.GetActiveEvent(r.Context())
		if err != nil {
			logger.Error("Failed to load active event", zap.Error(err))
			http.Error(w, "Failed to load event", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"event": event})

	case http.MethodPost, http.MethodPut:
		var body types.Event
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		saved, err := s.store.SaveEvent(r.Context(), body, true)
		if err != nil {
			logger.Error("Failed to save event", zap.Error(err))
			http.Error(w, "Failed to save event", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"event": saved})

	case http.MethodDelete:
		if err := s.store.DeactivateEvents(r.Context()); err != nil {
			logger.Error("Failed to end event", zap.Error(err))
			http.Error(w, "Failed to end event", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"event": nil})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
